// Package dispatchman drives an approved cross-chain message through
// destination execution and the owning transaction to a terminal status.
// Consensus is never re-run here; only the dispatch step is retried.
package dispatchman

import (
	"context"
	"time"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/crosslane/bridge-service/log"
	"github.com/crosslane/bridge-service/message"
	"github.com/crosslane/bridge-service/txstore"
	"github.com/pkg/errors"
)

const (
	defaultNumRetries    = 3
	defaultRetryInterval = 5 * time.Second
)

// Dispatcher submits an approved message for execution on the destination
// chain. Chain access is an external collaborator behind this seam.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *message.CCIPMessage) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, msg *message.CCIPMessage) error

// Dispatch calls f(ctx, msg).
func (f DispatcherFunc) Dispatch(ctx context.Context, msg *message.CCIPMessage) error {
	return f(ctx, msg)
}

// Config holds the bounded-retry knobs for destination dispatch.
type Config struct {
	// NumRetries is the number of dispatch attempts beyond the first.
	NumRetries int `mapstructure:"NumRetries"`

	// RetryInterval is the pause between dispatch attempts.
	RetryInterval time.Duration `mapstructure:"RetryInterval"`
}

// Manager executes approved messages and resolves rejected ones.
type Manager struct {
	cfg        Config
	storage    txstore.Storage
	dispatcher Dispatcher
}

// New creates a Manager.
func New(cfg Config, storage txstore.Storage, dispatcher Dispatcher) *Manager {
	if cfg.NumRetries <= 0 {
		cfg.NumRetries = defaultNumRetries
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	return &Manager{cfg: cfg, storage: storage, dispatcher: dispatcher}
}

// Execute moves the transaction to processing, dispatches the message to
// the destination chain with bounded retries and settles the terminal
// status. The message must already be source-confirmed. A nil return means
// the transaction completed; exhausted retries settle it as failed and
// return the dispatch error.
func (m *Manager) Execute(ctx context.Context, transactionID string, msg *message.CCIPMessage) error {
	if err := m.storage.UpdateStatus(ctx, transactionID, txstore.StatusProcessing, ""); err != nil {
		return err
	}
	if err := msg.SetExecutionState(message.StateInFlight); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= m.cfg.NumRetries; attempt++ {
		if attempt > 0 {
			log.Infof("retrying destination dispatch for message %s, attempt %d/%d", msg.ID, attempt, m.cfg.NumRetries)
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				return m.failExecution(ctx, transactionID, msg, lastErr)
			case <-time.After(m.cfg.RetryInterval):
			}
		}
		if lastErr = m.dispatcher.Dispatch(ctx, msg); lastErr == nil {
			if err := msg.SetExecutionState(message.StateSuccess); err != nil {
				return err
			}
			return m.storage.UpdateStatus(ctx, transactionID, txstore.StatusCompleted, "")
		}
		log.Warnf("destination dispatch for message %s failed: %v", msg.ID, lastErr)
	}
	return m.failExecution(ctx, transactionID, msg, errors.Wrap(gerror.ErrExecutionFailed, lastErr.Error()))
}

// Fail resolves a transaction whose message never reached quorum, moving
// it through processing to failed with the recorded cause.
func (m *Manager) Fail(ctx context.Context, transactionID string, msg *message.CCIPMessage, cause string) error {
	if err := m.storage.UpdateStatus(ctx, transactionID, txstore.StatusProcessing, ""); err != nil {
		return err
	}
	if err := msg.SetExecutionState(message.StateFailed); err != nil {
		log.Warnf("message %s state on rejection: %v", msg.ID, err)
	}
	return m.storage.UpdateStatus(ctx, transactionID, txstore.StatusFailed, cause)
}

// failExecution settles the transaction as failed and returns the cause so
// the caller never mistakes an exhausted dispatch for a completed one.
func (m *Manager) failExecution(ctx context.Context, transactionID string, msg *message.CCIPMessage, cause error) error {
	if err := msg.SetExecutionState(message.StateFailed); err != nil {
		log.Warnf("message %s state on execution failure: %v", msg.ID, err)
	}
	if err := m.storage.UpdateStatus(ctx, transactionID, txstore.StatusFailed, cause.Error()); err != nil {
		return err
	}
	return cause
}
