package txstore

import (
	"math/big"
	"time"

	"github.com/crosslane/bridge-service/estimatefee"
)

const (
	// StatusPending means the transaction was accepted and awaits consensus
	StatusPending = Status("pending")
	// StatusProcessing means quorum handling started and the destination dispatch is underway
	StatusProcessing = Status("processing")
	// StatusCompleted means the destination execution succeeded. Terminal.
	StatusCompleted = Status("completed")
	// StatusFailed means the transaction was rejected, timed out or failed executing. Terminal.
	StatusFailed = Status("failed")
)

// Status represents the lifecycle status of a bridge transaction
type Status string

// String returns a string representation of the status
func (s Status) String() string {
	return string(s)
}

// allowed lifecycle transitions. The store rejects everything else.
var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// VoteRecord is one validator attestation kept on the transaction for audit.
type VoteRecord struct {
	ValidatorID string
	Approved    bool
	Signature   []byte
	CastAt      time.Time
}

// BridgeTransaction tracks one in-flight or historical bridge transfer. It
// is owned exclusively by the Storage; callers receive copies and mutate
// only through the lifecycle API.
type BridgeTransaction struct {
	TransactionID            string
	MessageID                string
	SourceChainSelector      uint64
	DestinationChainSelector uint64
	SourceAddress            string
	TargetAddress            string
	TokenContract            string
	TokenSymbol              string
	Amount                   *big.Int
	Status                   Status
	FeeEstimate              *estimatefee.Estimate
	FailureReason            string
	CreatedAt                time.Time
	CompletedAt              time.Time
	CollectedVotes           []VoteRecord
}

func (t *BridgeTransaction) clone() *BridgeTransaction {
	cp := *t
	if t.Amount != nil {
		cp.Amount = new(big.Int).Set(t.Amount)
	}
	if len(t.CollectedVotes) > 0 {
		cp.CollectedVotes = make([]VoteRecord, len(t.CollectedVotes))
		copy(cp.CollectedVotes, t.CollectedVotes)
	}
	return &cp
}
