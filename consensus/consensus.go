// Package consensus collects independent validator attestations per message
// and computes the Byzantine quorum verdict that authorizes cross-chain
// execution. For a validator set of size N it tolerates f = (N-1)/3 faulty
// validators and requires 2f+1 approvals.
package consensus

import (
	"context"
	"sync"
	"time"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/crosslane/bridge-service/log"
	"github.com/crosslane/bridge-service/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const (
	defaultLivenessTimeout = 3 * time.Minute
	defaultSweepInterval   = 5 * time.Second
	defaultRoundRetention  = 30 * time.Minute
)

// Config holds the validator set and liveness knobs.
type Config struct {
	// Validators are the identities of the fixed validator set.
	Validators []string `mapstructure:"Validators"`

	// LivenessTimeout bounds how long a round may stay undecided before it
	// is deterministically rejected.
	LivenessTimeout time.Duration `mapstructure:"LivenessTimeout"`

	// SweepInterval is how often expired rounds are resolved.
	SweepInterval time.Duration `mapstructure:"SweepInterval"`

	// RoundRetention is how long a settled round stays queryable before the
	// sweeper drops it.
	RoundRetention time.Duration `mapstructure:"RoundRetention"`
}

// Vote is one validator attestation over a message content hash.
type Vote struct {
	ValidatorID string
	Approved    bool
	Signature   []byte
	CastAt      time.Time
}

// Snapshot is the observable state of one consensus round.
type Snapshot struct {
	MessageID        string
	VotesReceived    int
	Approvals        int
	Disapprovals     int
	VotesRequired    int
	ConsensusReached bool
	Approved         bool
	TimedOut         bool
}

// Verdict is the terminal outcome of a round.
type Verdict struct {
	MessageID string
	Approved  bool
	TimedOut  bool
	Cause     error // non-nil for timeouts and rejections
}

type round struct {
	mu          sync.Mutex
	messageID   string
	contentHash common.Hash
	votes       map[string]Vote // last vote per validator
	audit       []Vote          // every accepted vote in arrival order
	verdict     *Verdict
	deadline    time.Time
	finalizedAt time.Time
	resultCh    chan Verdict
}

// Engine runs consensus rounds. Rounds for different messages never block
// each other; all per-round state is guarded by the round's own lock.
type Engine struct {
	cfg        Config
	validators map[string]struct{}
	quorum     int
	verifier   Verifier
	clock      utils.TimeProvider

	mu     sync.RWMutex
	rounds map[string]*round
}

// NewEngine creates an Engine for a fixed validator set.
func NewEngine(cfg Config, verifier Verifier) (*Engine, error) {
	n := len(cfg.Validators)
	if n == 0 {
		return nil, errors.New("validator set is empty")
	}
	if cfg.LivenessTimeout <= 0 {
		cfg.LivenessTimeout = defaultLivenessTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.RoundRetention <= 0 {
		cfg.RoundRetention = defaultRoundRetention
	}

	validators := make(map[string]struct{}, n)
	for _, id := range cfg.Validators {
		if _, ok := validators[id]; ok {
			return nil, errors.Errorf("duplicate validator id %s", id)
		}
		validators[id] = struct{}{}
	}

	f := (n - 1) / 3
	e := &Engine{
		cfg:        cfg,
		validators: validators,
		quorum:     2*f + 1,
		verifier:   verifier,
		clock:      utils.NewSystemTimeProvider(),
		rounds:     make(map[string]*round),
	}
	log.Infof("consensus engine ready, validators[%d] tolerated faults[%d] quorum[%d]", n, f, e.quorum)
	return e, nil
}

// WithTimeProvider overrides the clock. Used by tests.
func (e *Engine) WithTimeProvider(clock utils.TimeProvider) *Engine {
	e.clock = clock
	return e
}

// Quorum returns the number of approvals required to finalize a message.
func (e *Engine) Quorum() int { return e.quorum }

// ValidatorCount returns the size of the validator set.
func (e *Engine) ValidatorCount() int { return len(e.validators) }

// StartRound opens a consensus round for a message. The returned channel
// delivers exactly one Verdict; it is buffered so the engine never blocks
// on a slow consumer.
func (e *Engine) StartRound(messageID string, contentHash common.Hash) (<-chan Verdict, error) {
	r := &round{
		messageID:   messageID,
		contentHash: contentHash,
		votes:       make(map[string]Vote),
		deadline:    e.clock.Now().Add(e.cfg.LivenessTimeout),
		resultCh:    make(chan Verdict, 1),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rounds[messageID]; ok {
		return nil, errors.Errorf("consensus round for message %s already exists", messageID)
	}
	e.rounds[messageID] = r
	return r.resultCh, nil
}

// SubmitVote records a validator's attestation and returns the resulting
// snapshot. A later vote from the same validator replaces the earlier one.
// Votes arriving after the verdict are kept for audit but cannot flip it.
func (e *Engine) SubmitVote(ctx context.Context, messageID string, v Vote) (Snapshot, error) {
	if _, ok := e.validators[v.ValidatorID]; !ok {
		return Snapshot{}, errors.Wrapf(gerror.ErrUnknownValidator, "%s", v.ValidatorID)
	}

	r, err := e.round(messageID)
	if err != nil {
		return Snapshot{}, err
	}

	if err := e.verifier.Verify(v.ValidatorID, r.contentHash, v.Signature); err != nil {
		return Snapshot{}, err
	}
	if v.CastAt.IsZero() {
		v.CastAt = e.clock.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = append(r.audit, v)
	r.votes[v.ValidatorID] = v

	if r.verdict == nil {
		e.evaluateLocked(r)
	}
	return e.snapshotLocked(r), nil
}

// GetSnapshot returns the observable state of a round.
func (e *Engine) GetSnapshot(messageID string) (Snapshot, error) {
	r, err := e.round(messageID)
	if err != nil {
		return Snapshot{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return e.snapshotLocked(r), nil
}

// AuditTrail returns every accepted vote of a round in arrival order,
// including votes cast after the verdict.
func (e *Engine) AuditTrail(messageID string) ([]Vote, error) {
	r, err := e.round(messageID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Vote, len(r.audit))
	copy(out, r.audit)
	return out, nil
}

// Start runs the liveness sweeper until ctx is cancelled. Rounds that pass
// their deadline without a verdict resolve to a rejected, timed-out
// verdict instead of hanging forever.
func (e *Engine) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(e.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.sweep()
			}
		}
	}()
}

func (e *Engine) sweep() {
	now := e.clock.Now()

	e.mu.RLock()
	active := make([]*round, 0, len(e.rounds))
	for _, r := range e.rounds {
		active = append(active, r)
	}
	e.mu.RUnlock()

	var settled []string
	for _, r := range active {
		r.mu.Lock()
		if r.verdict == nil && now.After(r.deadline) {
			e.finalizeLocked(r, Verdict{
				MessageID: r.messageID,
				Approved:  false,
				TimedOut:  true,
				Cause:     gerror.ErrConsensusTimeout,
			})
		}
		if r.verdict != nil && now.Sub(r.finalizedAt) >= e.cfg.RoundRetention {
			settled = append(settled, r.messageID)
		}
		r.mu.Unlock()
	}

	if len(settled) == 0 {
		return
	}
	e.mu.Lock()
	for _, id := range settled {
		delete(e.rounds, id)
	}
	e.mu.Unlock()
	log.Debugf("dropped %d settled consensus rounds past retention", len(settled))
}

// SweepNow forces one sweeper pass. Used by tests to avoid waiting on the
// ticker.
func (e *Engine) SweepNow() {
	e.sweep()
}

func (e *Engine) round(messageID string) (*round, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rounds[messageID]
	if !ok {
		return nil, errors.Wrapf(gerror.ErrNotFound, "consensus round for message %s", messageID)
	}
	return r, nil
}

// evaluateLocked recomputes the tally and finalizes the round when the
// verdict is mathematically settled. Caller holds r.mu.
func (e *Engine) evaluateLocked(r *round) {
	approvals, disapprovals := tally(r.votes)
	n := len(e.validators)

	switch {
	case approvals >= e.quorum:
		e.finalizeLocked(r, Verdict{MessageID: r.messageID, Approved: true})
	case disapprovals > n-e.quorum:
		// quorum is no longer reachable even if every remaining validator approves
		e.finalizeLocked(r, Verdict{
			MessageID: r.messageID,
			Approved:  false,
			Cause:     errors.Errorf("rejected by %d of %d validators", disapprovals, n),
		})
	}
}

// finalizeLocked records the terminal verdict and notifies the subscriber.
// Caller holds r.mu.
func (e *Engine) finalizeLocked(r *round, v Verdict) {
	r.verdict = &v
	r.finalizedAt = e.clock.Now()
	select {
	case r.resultCh <- v:
	default:
	}
	log.Infof("consensus round %s finalized, approved[%v] timedOut[%v]", r.messageID, v.Approved, v.TimedOut)
}

func (e *Engine) snapshotLocked(r *round) Snapshot {
	approvals, disapprovals := tally(r.votes)
	s := Snapshot{
		MessageID:     r.messageID,
		VotesReceived: len(r.votes),
		Approvals:     approvals,
		Disapprovals:  disapprovals,
		VotesRequired: e.quorum,
	}
	if r.verdict != nil {
		s.ConsensusReached = true
		s.Approved = r.verdict.Approved
		s.TimedOut = r.verdict.TimedOut
	}
	return s
}

func tally(votes map[string]Vote) (approvals, disapprovals int) {
	for _, v := range votes {
		if v.Approved {
			approvals++
		} else {
			disapprovals++
		}
	}
	return approvals, disapprovals
}
