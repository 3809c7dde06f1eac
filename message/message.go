package message

import (
	"math/big"
	"time"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const (
	// TypeArbitraryMessage means the message carries only a data payload
	TypeArbitraryMessage = Type("arbitrary_message")
	// TypeTokenTransfer means the message carries only token amounts
	TypeTokenTransfer = Type("token_transfer")
	// TypeProgrammableTokenTransfer means the message carries both a payload and token amounts
	TypeProgrammableTokenTransfer = Type("programmable_token_transfer")
)

// Type classifies a message by the content it carries. It is derived once at
// build time from the presence of payload and token amounts.
type Type string

// String returns a string representation of the message type
func (t Type) String() string {
	return string(t)
}

const (
	// StateUntouched means the message was built but not yet submitted to the network
	StateUntouched = ExecutionState("untouched")
	// StatePending means the message was submitted to the network
	StatePending = ExecutionState("pending")
	// StateSourceConfirmed means source-chain finality was observed by the validators
	StateSourceConfirmed = ExecutionState("source_confirmed")
	// StateInFlight means quorum was reached and the destination execution was dispatched
	StateInFlight = ExecutionState("in_flight")
	// StateSuccess means the destination execution completed. Terminal.
	StateSuccess = ExecutionState("success")
	// StateFailed means the message was rejected, timed out or failed executing. Terminal.
	StateFailed = ExecutionState("failed")
)

// ExecutionState represents the lifecycle state of a message
type ExecutionState string

// String returns a string representation of the state
func (s ExecutionState) String() string {
	return string(s)
}

// allowed forward transitions. Anything missing here is rejected, so a
// component can never fabricate finality by jumping states.
var stateTransitions = map[ExecutionState][]ExecutionState{
	StateUntouched:       {StatePending},
	StatePending:         {StateSourceConfirmed, StateFailed},
	StateSourceConfirmed: {StateInFlight, StateFailed},
	StateInFlight:        {StateSuccess, StateFailed},
}

// CanTransition reports whether moving from s to next is a legal forward step.
func (s ExecutionState) CanTransition(next ExecutionState) bool {
	for _, allowed := range stateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TokenAmount represents an amount of a specific token carried by a message
type TokenAmount struct {
	TokenAddress common.Address
	Amount       *big.Int // in the token's smallest unit
	Decimals     uint8
	Symbol       string
}

// Formatted returns the amount scaled down by the token decimals as an exact
// rational, e.g. 1500000000000000000 with 18 decimals formats to 3/2.
func (t TokenAmount) Formatted() *big.Rat {
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(t.Decimals)), nil)
	return new(big.Rat).SetFrac(new(big.Int).Set(t.Amount), divisor)
}

// USDValue returns the formatted amount multiplied by the given unit price.
func (t TokenAmount) USDValue(unitPrice *big.Rat) *big.Rat {
	return new(big.Rat).Mul(t.Formatted(), unitPrice)
}

// TotalUSDValue sums the USD value of the given amounts using unitPrice to
// resolve the market price of each token address.
func TotalUSDValue(amounts []TokenAmount, unitPrice func(common.Address) *big.Rat) *big.Rat {
	total := new(big.Rat)
	for _, ta := range amounts {
		price := unitPrice(ta.TokenAddress)
		if price == nil {
			continue
		}
		total.Add(total, ta.USDValue(price))
	}
	return total
}

// CCIPMessage is the cross-chain message envelope. The ID is assigned at
// build time and never changes; two messages built from identical parts get
// distinct IDs, so equality is identity based.
type CCIPMessage struct {
	ID                       string
	SourceChainSelector      uint64
	DestinationChainSelector uint64
	Sender                   string
	Receiver                 string
	Payload                  []byte
	TokenAmounts             []TokenAmount
	Type                     Type
	ExtraArgs                ExtraArgs
	ExecutionState           ExecutionState
	SentAt                   time.Time
}

// Equal reports whether both envelopes refer to the same message identity.
func (m *CCIPMessage) Equal(other *CCIPMessage) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.ID == other.ID
}

// SetExecutionState advances the message lifecycle. Backward moves and state
// skips are rejected with gerror.ErrInvalidTransition.
func (m *CCIPMessage) SetExecutionState(next ExecutionState) error {
	if !m.ExecutionState.CanTransition(next) {
		return errors.Wrapf(gerror.ErrInvalidTransition, "message %s: %s -> %s", m.ID, m.ExecutionState, next)
	}
	m.ExecutionState = next
	return nil
}

// ContentHash returns the keccak256 hash of the canonical content encoding.
// Validators sign this hash rather than the serialized envelope, so a
// re-encoded but semantically identical message still verifies. Execution
// state and timestamps are excluded on purpose.
func (m *CCIPMessage) ContentHash() common.Hash {
	var buf encodeBuffer
	buf.writeString(m.ID)
	buf.writeUint64(m.SourceChainSelector)
	buf.writeUint64(m.DestinationChainSelector)
	buf.writeString(m.Sender)
	buf.writeString(m.Receiver)
	buf.writeBytes(m.Payload)
	buf.writeUint16(uint16(len(m.TokenAmounts)))
	for _, ta := range m.TokenAmounts {
		buf.writeRaw(ta.TokenAddress.Bytes())
		buf.writeBytes(ta.Amount.Bytes())
		buf.writeRaw([]byte{ta.Decimals})
		buf.writeString(ta.Symbol)
	}
	buf.writeBytes(m.ExtraArgs.Encode())
	return crypto.Keccak256Hash(buf.bytes())
}
