package txstore

import (
	"context"
	"sync"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/crosslane/bridge-service/log"
	"github.com/crosslane/bridge-service/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// record wraps a transaction with its own lock so that concurrent
// operations on different transaction ids never contend.
type record struct {
	mu sync.Mutex
	tx *BridgeTransaction
}

// MemoryStorage is the in-memory Storage implementation. The map lock is
// held only for lookups and inserts; per-transaction mutation happens under
// the record lock.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*record
	order   []string // creation order, for stable listings
	lanes   LaneChecker
	clock   utils.TimeProvider
}

// NewMemoryStorage creates an empty storage validating lanes against the
// given checker.
func NewMemoryStorage(lanes LaneChecker) *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*record),
		lanes:   lanes,
		clock:   utils.NewSystemTimeProvider(),
	}
}

// WithTimeProvider overrides the clock. Used by tests.
func (s *MemoryStorage) WithTimeProvider(clock utils.TimeProvider) *MemoryStorage {
	s.clock = clock
	return s
}

// Create validates and persists a new transaction.
func (s *MemoryStorage) Create(ctx context.Context, tx *BridgeTransaction) (string, error) {
	if tx.Amount == nil || tx.Amount.Sign() <= 0 {
		return "", gerror.ErrNonPositiveAmount
	}
	if !s.lanes.IsLaneSupported(tx.SourceChainSelector, tx.DestinationChainSelector) {
		return "", errors.Wrapf(gerror.ErrUnsupportedLane, "%d -> %d", tx.SourceChainSelector, tx.DestinationChainSelector)
	}

	stored := tx.clone()
	if stored.TransactionID == "" {
		stored.TransactionID = uuid.NewString()
	}
	stored.Status = StatusPending
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[stored.TransactionID]; ok {
		return "", errors.Errorf("transaction %s already exists", stored.TransactionID)
	}
	s.records[stored.TransactionID] = &record{tx: stored}
	s.order = append(s.order, stored.TransactionID)
	log.Debugf("created bridge transaction %s lane[%d -> %d] amount[%s]",
		stored.TransactionID, stored.SourceChainSelector, stored.DestinationChainSelector, stored.Amount)
	return stored.TransactionID, nil
}

func (s *MemoryStorage) lookup(transactionID string) (*record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[transactionID]
	if !ok {
		return nil, errors.Wrapf(gerror.ErrNotFound, "transaction %s", transactionID)
	}
	return r, nil
}

// Get returns a copy of the transaction.
func (s *MemoryStorage) Get(ctx context.Context, transactionID string) (*BridgeTransaction, error) {
	r, err := s.lookup(transactionID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tx.clone(), nil
}

// ListByAddress returns all transactions where the address participates as
// sender or receiver, in creation order.
func (s *MemoryStorage) ListByAddress(ctx context.Context, address string) ([]*BridgeTransaction, error) {
	var out []*BridgeTransaction
	for _, r := range s.snapshot() {
		r.mu.Lock()
		if r.tx.SourceAddress == address || r.tx.TargetAddress == address {
			out = append(out, r.tx.clone())
		}
		r.mu.Unlock()
	}
	return out, nil
}

// List returns all transactions in creation order.
func (s *MemoryStorage) List(ctx context.Context) ([]*BridgeTransaction, error) {
	records := s.snapshot()
	out := make([]*BridgeTransaction, 0, len(records))
	for _, r := range records {
		r.mu.Lock()
		out = append(out, r.tx.clone())
		r.mu.Unlock()
	}
	return out, nil
}

func (s *MemoryStorage) snapshot() []*record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// UpdateStatus drives the transaction lifecycle.
func (s *MemoryStorage) UpdateStatus(ctx context.Context, transactionID string, next Status, reason string) error {
	r, err := s.lookup(transactionID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.tx.Status.CanTransition(next) {
		return errors.Wrapf(gerror.ErrInvalidTransition, "transaction %s: %s -> %s", transactionID, r.tx.Status, next)
	}
	r.tx.Status = next
	if next == StatusFailed {
		r.tx.FailureReason = reason
	}
	if next.IsTerminal() {
		r.tx.CompletedAt = s.clock.Now()
	}
	log.Infof("bridge transaction %s moved to %s", transactionID, next)
	return nil
}

// AddVote appends an attestation to the audit trail.
func (s *MemoryStorage) AddVote(ctx context.Context, transactionID string, vote VoteRecord) error {
	r, err := s.lookup(transactionID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tx.CollectedVotes = append(r.tx.CollectedVotes, vote)
	return nil
}
