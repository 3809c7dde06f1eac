package bridgectrl

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/crosslane/bridge-service/chainregistry"
	"github.com/crosslane/bridge-service/consensus"
	"github.com/crosslane/bridge-service/dispatchman"
	"github.com/crosslane/bridge-service/estimatefee"
	"github.com/crosslane/bridge-service/gerror"
	"github.com/crosslane/bridge-service/message"
	"github.com/crosslane/bridge-service/pricing"
	"github.com/crosslane/bridge-service/txstore"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectorEthereum = uint64(5009297550715157269)
	selectorPolygon  = uint64(4051577828743386545)
)

type testHarness struct {
	controller *BridgeController
	storage    *txstore.MemoryStorage
	engine     *consensus.Engine
	validators []string
	dispatched chan string
}

func newTestHarness(t *testing.T, dispatcher dispatchman.Dispatcher) *testHarness {
	t.Helper()

	registry, err := chainregistry.New(chainregistry.Config{
		Chains: []chainregistry.ChainInfo{
			{Selector: selectorEthereum, Name: "ethereum", NetworkID: 1, NativeCurrency: "ETH", Active: true},
			{Selector: selectorPolygon, Name: "polygon", NetworkID: 137, NativeCurrency: "POL", Active: true},
		},
		Lanes: []chainregistry.Lane{
			{SourceChainSelector: selectorEthereum, DestinationChainSelector: selectorPolygon},
			{SourceChainSelector: selectorPolygon, DestinationChainSelector: selectorEthereum},
		},
	})
	require.NoError(t, err)

	prices := pricing.NewStatic()
	prices.SetGasPrice(selectorPolygon, big.NewInt(30))
	prices.SetGasPrice(selectorEthereum, big.NewInt(25))

	estimator := estimatefee.NewEstimator(registry, prices, estimatefee.Config{})
	storage := txstore.NewMemoryStorage(registry)

	validators := []string{"val-1", "val-2", "val-3", "val-4", "val-5", "val-6", "val-7"}
	engine, err := consensus.NewEngine(consensus.Config{Validators: validators}, consensus.NoopVerifier{})
	require.NoError(t, err)

	dispatched := make(chan string, 64)
	if dispatcher == nil {
		dispatcher = dispatchman.DispatcherFunc(func(ctx context.Context, msg *message.CCIPMessage) error {
			dispatched <- msg.ID
			return nil
		})
	}
	manager := dispatchman.New(dispatchman.Config{NumRetries: 1, RetryInterval: time.Millisecond}, storage, dispatcher)

	controller, err := NewBridgeController(Config{}, registry, estimator, storage, engine, manager)
	require.NoError(t, err)

	return &testHarness{
		controller: controller,
		storage:    storage,
		engine:     engine,
		validators: validators,
		dispatched: dispatched,
	}
}

func (h *testHarness) approve(t *testing.T, messageID string) {
	t.Helper()
	for _, v := range h.validators[:h.engine.Quorum()] {
		_, err := h.controller.SubmitVote(context.Background(), messageID, consensus.Vote{
			ValidatorID: v,
			Approved:    true,
			CastAt:      time.Now().UTC(),
		})
		require.NoError(t, err)
	}
}

func (h *testHarness) reject(t *testing.T, messageID string) {
	t.Helper()
	rejections := h.engine.ValidatorCount() - h.engine.Quorum() + 1
	for _, v := range h.validators[:rejections] {
		_, err := h.controller.SubmitVote(context.Background(), messageID, consensus.Vote{
			ValidatorID: v,
			Approved:    false,
			CastAt:      time.Now().UTC(),
		})
		require.NoError(t, err)
	}
}

func waitForStatus(t *testing.T, h *testHarness, txID string, want txstore.Status) *txstore.BridgeTransaction {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		tx, err := h.storage.Get(context.Background(), txID)
		require.NoError(t, err)
		if tx.Status == want {
			return tx
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("transaction %s never reached status %s", txID, want)
	return nil
}

func TestInitiateBridgeHappyPath(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	before, err := h.controller.GetBridgeStats(ctx)
	require.NoError(t, err)

	txID, err := h.controller.InitiateBridge(ctx, BridgeRequest{
		SourceChainSelector:      selectorEthereum,
		DestinationChainSelector: selectorPolygon,
		SourceAddress:            "0x1111111111111111111111111111111111111111",
		TargetAddress:            "0x2222222222222222222222222222222222222222",
		TokenContract:            "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		TokenSymbol:              "USDT",
		TokenDecimals:            6,
		Amount:                   big.NewInt(500_000_000),
	})
	require.NoError(t, err)
	require.NotEmpty(t, txID)

	tx, err := h.controller.GetBridgeTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Contains(t, []txstore.Status{txstore.StatusPending, txstore.StatusProcessing, txstore.StatusCompleted}, tx.Status)
	require.NotNil(t, tx.FeeEstimate)
	assert.Equal(t, 1, tx.FeeEstimate.TotalFee.Sign())
	assert.Equal(t, new(big.Int).Add(tx.FeeEstimate.BridgeFee, tx.FeeEstimate.GasFee), tx.FeeEstimate.TotalFee)

	h.approve(t, tx.MessageID)

	done := waitForStatus(t, h, txID, txstore.StatusCompleted)
	assert.Empty(t, done.FailureReason)
	assert.False(t, done.CompletedAt.IsZero())
	assert.Len(t, done.CollectedVotes, h.engine.Quorum())

	msg, err := h.controller.GetMessage(txID)
	require.NoError(t, err)
	assert.Equal(t, message.StateSuccess, msg.ExecutionState)
	assert.Equal(t, message.TypeTokenTransfer, msg.Type)

	after, err := h.controller.GetBridgeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.TotalTransactions+1, after.TotalTransactions)
	assert.Equal(t, before.CompletedCount+1, after.CompletedCount)
}

func TestInitiateBridgeRejectedByConsensus(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	txID, err := h.controller.InitiateBridge(ctx, BridgeRequest{
		SourceChainSelector:      selectorPolygon,
		DestinationChainSelector: selectorEthereum,
		SourceAddress:            "0x1111111111111111111111111111111111111111",
		TargetAddress:            "0x2222222222222222222222222222222222222222",
		TokenContract:            "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		TokenSymbol:              "USDT",
		TokenDecimals:            6,
		Amount:                   big.NewInt(1_000_000),
	})
	require.NoError(t, err)

	tx, err := h.controller.GetBridgeTransaction(ctx, txID)
	require.NoError(t, err)
	h.reject(t, tx.MessageID)

	failed := waitForStatus(t, h, txID, txstore.StatusFailed)
	assert.Contains(t, failed.FailureReason, "rejected")

	select {
	case id := <-h.dispatched:
		t.Fatalf("message %s was dispatched after rejection", id)
	default:
	}

	msg, err := h.controller.GetMessage(txID)
	require.NoError(t, err)
	assert.Equal(t, message.StateFailed, msg.ExecutionState)
}

func TestInitiateBridgeDispatchFailure(t *testing.T) {
	h := newTestHarness(t, dispatchman.DispatcherFunc(func(context.Context, *message.CCIPMessage) error {
		return errors.New("destination rpc unavailable")
	}))
	ctx := context.Background()

	txID, err := h.controller.InitiateBridge(ctx, BridgeRequest{
		SourceChainSelector:      selectorEthereum,
		DestinationChainSelector: selectorPolygon,
		SourceAddress:            "0x1111111111111111111111111111111111111111",
		TargetAddress:            "0x2222222222222222222222222222222222222222",
		TokenContract:            "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		TokenSymbol:              "USDT",
		TokenDecimals:            6,
		Amount:                   big.NewInt(1_000_000),
	})
	require.NoError(t, err)

	tx, err := h.controller.GetBridgeTransaction(ctx, txID)
	require.NoError(t, err)
	h.approve(t, tx.MessageID)

	// an approved message whose dispatch exhausts its retries must settle
	// as failed, never as completed
	failed := waitForStatus(t, h, txID, txstore.StatusFailed)
	assert.Contains(t, failed.FailureReason, gerror.ErrExecutionFailed.Error())

	msg, err := h.controller.GetMessage(txID)
	require.NoError(t, err)
	assert.Equal(t, message.StateFailed, msg.ExecutionState)

	stats, err := h.controller.GetBridgeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FailedCount)
	assert.Zero(t, stats.CompletedCount)
}

func TestInitiateBridgeValidation(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	base := BridgeRequest{
		SourceChainSelector:      selectorEthereum,
		DestinationChainSelector: selectorPolygon,
		SourceAddress:            "0x1111111111111111111111111111111111111111",
		TargetAddress:            "0x2222222222222222222222222222222222222222",
		TokenContract:            "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		TokenSymbol:              "USDT",
		TokenDecimals:            6,
		Amount:                   big.NewInt(1_000_000),
	}

	t.Run("zero amount", func(t *testing.T) {
		req := base
		req.Amount = big.NewInt(0)
		_, err := h.controller.InitiateBridge(ctx, req)
		require.Error(t, err)
		assert.EqualError(t, err, "Bridge amount must be positive")
	})

	t.Run("negative amount", func(t *testing.T) {
		req := base
		req.Amount = big.NewInt(-5)
		_, err := h.controller.InitiateBridge(ctx, req)
		require.ErrorIs(t, err, gerror.ErrNonPositiveAmount)
	})

	t.Run("same chain lane", func(t *testing.T) {
		req := base
		req.DestinationChainSelector = selectorEthereum
		_, err := h.controller.InitiateBridge(ctx, req)
		require.ErrorIs(t, err, gerror.ErrSameChainLane)
	})

	t.Run("unknown chain", func(t *testing.T) {
		req := base
		req.DestinationChainSelector = 42
		_, err := h.controller.InitiateBridge(ctx, req)
		require.ErrorIs(t, err, gerror.ErrUnsupportedLane)
	})
}

func TestEstimateBridgeFeeCached(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	first, err := h.controller.EstimateBridgeFee(ctx, selectorEthereum, selectorPolygon, big.NewInt(500_000_000), "USDT")
	require.NoError(t, err)
	second, err := h.controller.EstimateBridgeFee(ctx, selectorEthereum, selectorPolygon, big.NewInt(500_000_000), "USDT")
	require.NoError(t, err)

	assert.Equal(t, first.TotalFee, second.TotalFee)
	assert.NotSame(t, first, second)

	// Mutating a returned quote must not poison the cache.
	second.TotalFee.SetInt64(0)
	third, err := h.controller.EstimateBridgeFee(ctx, selectorEthereum, selectorPolygon, big.NewInt(500_000_000), "USDT")
	require.NoError(t, err)
	assert.Equal(t, first.TotalFee, third.TotalFee)

	_, err = h.controller.EstimateBridgeFee(ctx, selectorEthereum, selectorPolygon, big.NewInt(0), "USDT")
	require.ErrorIs(t, err, gerror.ErrNonPositiveAmount)
}

func TestGetSupportedChainsAndLaneStatus(t *testing.T) {
	h := newTestHarness(t, nil)

	chains := h.controller.GetSupportedChains()
	require.Len(t, chains, 2)
	assert.Equal(t, "polygon", chains[0].Name)
	assert.Equal(t, "ethereum", chains[1].Name)

	lane, err := h.controller.GetLaneStatus(selectorEthereum, selectorPolygon)
	require.NoError(t, err)
	assert.True(t, lane.Active)
	assert.Equal(t, "ethereum", lane.SourceChainName)

	_, err = h.controller.GetLaneStatus(selectorEthereum, 42)
	require.Error(t, err)
}

func TestGetBridgeTransactionsByAddress(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	sender := "0x1111111111111111111111111111111111111111"
	for i := 0; i < 3; i++ {
		_, err := h.controller.InitiateBridge(ctx, BridgeRequest{
			SourceChainSelector:      selectorEthereum,
			DestinationChainSelector: selectorPolygon,
			SourceAddress:            sender,
			TargetAddress:            "0x2222222222222222222222222222222222222222",
			TokenContract:            "0xdAC17F958D2ee523a2206206994597C13D831ec7",
			TokenSymbol:              "USDT",
			TokenDecimals:            6,
			Amount:                   big.NewInt(int64(i+1) * 1_000_000),
		})
		require.NoError(t, err)
	}

	txs, err := h.controller.GetBridgeTransactions(ctx, sender)
	require.NoError(t, err)
	assert.Len(t, txs, 3)

	txs, err = h.controller.GetBridgeTransactions(ctx, "0x9999999999999999999999999999999999999999")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestConcurrentInitiations(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	const workers = 20
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			txID, err := h.controller.InitiateBridge(ctx, BridgeRequest{
				SourceChainSelector:      selectorEthereum,
				DestinationChainSelector: selectorPolygon,
				SourceAddress:            "0x1111111111111111111111111111111111111111",
				TargetAddress:            "0x2222222222222222222222222222222222222222",
				TokenContract:            "0xdAC17F958D2ee523a2206206994597C13D831ec7",
				TokenSymbol:              "USDT",
				TokenDecimals:            6,
				Amount:                   big.NewInt(int64(n+1) * 1_000_000),
			})
			assert.NoError(t, err)
			ids <- txID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, workers)
	for id := range ids {
		require.NotEmpty(t, id)
		seen[id] = struct{}{}
	}
	require.Len(t, seen, workers)

	stats, err := h.controller.GetBridgeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, workers, stats.TotalTransactions)
}
