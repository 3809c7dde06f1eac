package message

import (
	"time"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultGasLimit is applied when the caller supplies no extra args.
const DefaultGasLimit = 200_000

// BuildParams are the raw parts a message is built from.
type BuildParams struct {
	SourceChainSelector      uint64
	DestinationChainSelector uint64
	Sender                   string
	Receiver                 string
	Payload                  []byte
	TokenAmounts             []TokenAmount
	ExtraArgs                *ExtraArgs // optional, defaults applied when nil
}

// Build validates the parts, derives the message type and assigns a fresh
// high-entropy message ID. The returned message starts in StateUntouched.
func Build(p BuildParams) (*CCIPMessage, error) {
	if p.SourceChainSelector == p.DestinationChainSelector {
		return nil, errors.Wrapf(gerror.ErrSameChainLane, "selector %d", p.SourceChainSelector)
	}
	if len(p.Payload) == 0 && len(p.TokenAmounts) == 0 {
		return nil, gerror.ErrEmptyMessage
	}
	for i, ta := range p.TokenAmounts {
		if ta.Amount == nil || ta.Amount.Sign() <= 0 {
			return nil, errors.Wrapf(gerror.ErrNonPositiveAmount, "token amount at index %d", i)
		}
	}

	extraArgs := ExtraArgs{GasLimit: DefaultGasLimit}
	if p.ExtraArgs != nil {
		extraArgs = *p.ExtraArgs
	}

	return &CCIPMessage{
		ID:                       uuid.NewString(),
		SourceChainSelector:      p.SourceChainSelector,
		DestinationChainSelector: p.DestinationChainSelector,
		Sender:                   p.Sender,
		Receiver:                 p.Receiver,
		Payload:                  p.Payload,
		TokenAmounts:             p.TokenAmounts,
		Type:                     deriveType(p.Payload, p.TokenAmounts),
		ExtraArgs:                extraArgs,
		ExecutionState:           StateUntouched,
		SentAt:                   time.Now().UTC(),
	}, nil
}

func deriveType(payload []byte, tokenAmounts []TokenAmount) Type {
	switch {
	case len(payload) > 0 && len(tokenAmounts) > 0:
		return TypeProgrammableTokenTransfer
	case len(tokenAmounts) > 0:
		return TypeTokenTransfer
	default:
		return TypeArbitraryMessage
	}
}
