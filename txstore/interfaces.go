package txstore

import "context"

// LaneChecker validates that a transfer direction is enabled. Satisfied by
// chainregistry.Registry.
type LaneChecker interface {
	IsLaneSupported(src, dst uint64) bool
}

// Storage tracks bridge transactions and enforces their lifecycle. A
// durable implementation can replace the in-memory one behind this
// interface without touching callers.
type Storage interface {
	// Create validates and persists a new transaction, assigning its id and
	// setting the status to pending.
	Create(ctx context.Context, tx *BridgeTransaction) (string, error)
	// Get returns a copy of the transaction or gerror.ErrNotFound.
	Get(ctx context.Context, transactionID string) (*BridgeTransaction, error)
	// ListByAddress returns copies of all transactions where the address is
	// sender or receiver.
	ListByAddress(ctx context.Context, address string) ([]*BridgeTransaction, error)
	// List returns copies of all known transactions.
	List(ctx context.Context) ([]*BridgeTransaction, error)
	// UpdateStatus drives the lifecycle. Illegal moves fail with
	// gerror.ErrInvalidTransition; reason is recorded on failures.
	UpdateStatus(ctx context.Context, transactionID string, next Status, reason string) error
	// AddVote appends a validator attestation to the audit trail.
	AddVote(ctx context.Context, transactionID string, vote VoteRecord) error
}
