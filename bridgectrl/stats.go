package bridgectrl

import (
	"context"
	"sync"
	"time"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/crosslane/bridge-service/message"
	"github.com/crosslane/bridge-service/txstore"
)

// Stats is an aggregate view over every transaction the store holds. It is
// recomputed on demand rather than kept as counters, so it never drifts.
type Stats struct {
	TotalTransactions     int
	PendingCount          int
	ProcessingCount       int
	CompletedCount        int
	FailedCount           int
	AverageCompletionTime time.Duration
}

// GetBridgeStats recomputes aggregate counters from the transaction store.
// The average completion time covers terminal transactions only.
func (b *BridgeController) GetBridgeStats(ctx context.Context) (Stats, error) {
	txs, err := b.storage.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	var terminal int
	var elapsed time.Duration
	for _, tx := range txs {
		stats.TotalTransactions++
		switch tx.Status {
		case txstore.StatusPending:
			stats.PendingCount++
		case txstore.StatusProcessing:
			stats.ProcessingCount++
		case txstore.StatusCompleted:
			stats.CompletedCount++
		case txstore.StatusFailed:
			stats.FailedCount++
		}
		if tx.Status.IsTerminal() && !tx.CompletedAt.IsZero() {
			terminal++
			elapsed += tx.CompletedAt.Sub(tx.CreatedAt)
		}
	}
	if terminal > 0 {
		stats.AverageCompletionTime = elapsed / time.Duration(terminal)
	}
	return stats, nil
}

// messageIndex maps transaction IDs to their in-memory messages and keeps a
// reverse index by message ID for vote mirroring.
type messageIndex struct {
	mu    sync.RWMutex
	byTx  map[string]*message.CCIPMessage
	byMsg map[string]string
}

func newMessageIndex() *messageIndex {
	return &messageIndex{
		byTx:  make(map[string]*message.CCIPMessage),
		byMsg: make(map[string]string),
	}
}

func (i *messageIndex) put(transactionID string, msg *message.CCIPMessage) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.byTx[transactionID] = msg
	i.byMsg[msg.ID] = transactionID
}

func (i *messageIndex) get(transactionID string) (*message.CCIPMessage, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	msg, ok := i.byTx[transactionID]
	if !ok {
		return nil, gerror.ErrNotFound
	}
	return msg, nil
}

func (i *messageIndex) transactionID(messageID string) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	txID, ok := i.byMsg[messageID]
	return txID, ok
}
