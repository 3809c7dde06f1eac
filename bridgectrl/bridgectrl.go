package bridgectrl

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/crosslane/bridge-service/chainregistry"
	"github.com/crosslane/bridge-service/consensus"
	"github.com/crosslane/bridge-service/dispatchman"
	"github.com/crosslane/bridge-service/estimatefee"
	"github.com/crosslane/bridge-service/gerror"
	"github.com/crosslane/bridge-service/log"
	"github.com/crosslane/bridge-service/message"
	"github.com/crosslane/bridge-service/metrics"
	"github.com/crosslane/bridge-service/txstore"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

const defaultQuoteCacheSize = 1024

// Config is the orchestrator configuration.
type Config struct {
	// QuoteCacheSize bounds the fee quote cache. Zero selects the default.
	QuoteCacheSize int `mapstructure:"QuoteCacheSize"`
}

// BridgeRequest carries everything needed to initiate a transfer.
type BridgeRequest struct {
	SourceChainSelector      uint64
	DestinationChainSelector uint64
	SourceAddress            string
	TargetAddress            string
	TokenContract            string
	TokenSymbol              string
	TokenDecimals            uint8
	Amount                   *big.Int
	Payload                  []byte
	GasLimit                 uint64
	AllowOutOfOrderExecution bool
}

// BridgeController ties the registry, fee estimator, transaction store,
// consensus engine and dispatcher together behind one façade.
type BridgeController struct {
	cfg        Config
	registry   *chainregistry.Registry
	estimator  estimatefee.Estimator
	storage    txstore.Storage
	engine     *consensus.Engine
	dispatch   *dispatchman.Manager
	quoteCache *lru.Cache[string, *estimatefee.Estimate]

	messages *messageIndex
}

// NewBridgeController builds the orchestrator. Every collaborator is
// mandatory.
func NewBridgeController(cfg Config, registry *chainregistry.Registry, estimator estimatefee.Estimator,
	storage txstore.Storage, engine *consensus.Engine, dispatch *dispatchman.Manager) (*BridgeController, error) {
	if cfg.QuoteCacheSize <= 0 {
		cfg.QuoteCacheSize = defaultQuoteCacheSize
	}
	cache, err := lru.New[string, *estimatefee.Estimate](cfg.QuoteCacheSize)
	if err != nil {
		return nil, err
	}
	return &BridgeController{
		cfg:        cfg,
		registry:   registry,
		estimator:  estimator,
		storage:    storage,
		engine:     engine,
		dispatch:   dispatch,
		quoteCache: cache,
		messages:   newMessageIndex(),
	}, nil
}

// InitiateBridge validates the request, quotes the fee, persists a pending
// transaction, opens a consensus round over the message content hash and
// returns the transaction ID. The verdict is handled asynchronously.
func (b *BridgeController) InitiateBridge(ctx context.Context, req BridgeRequest) (string, error) {
	txID, err := b.initiateBridge(ctx, req)
	metrics.RecordRequest("initiate_bridge", err == nil)
	return txID, err
}

func (b *BridgeController) initiateBridge(ctx context.Context, req BridgeRequest) (string, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return "", gerror.ErrNonPositiveAmount
	}
	if req.SourceChainSelector == req.DestinationChainSelector {
		return "", errors.Wrapf(gerror.ErrSameChainLane, "selector %d", req.SourceChainSelector)
	}
	if !b.registry.IsLaneSupported(req.SourceChainSelector, req.DestinationChainSelector) {
		return "", errors.Wrapf(gerror.ErrUnsupportedLane, "lane %d -> %d", req.SourceChainSelector, req.DestinationChainSelector)
	}

	estimate, err := b.EstimateBridgeFee(ctx, req.SourceChainSelector, req.DestinationChainSelector, req.Amount, req.TokenSymbol)
	if err != nil {
		return "", errors.Wrap(err, "estimating bridge fee")
	}

	var extraArgs *message.ExtraArgs
	if req.GasLimit > 0 || req.AllowOutOfOrderExecution {
		gasLimit := req.GasLimit
		if gasLimit == 0 {
			gasLimit = message.DefaultGasLimit
		}
		extraArgs = &message.ExtraArgs{GasLimit: gasLimit, AllowOutOfOrderExecution: req.AllowOutOfOrderExecution}
	}
	msg, err := message.Build(message.BuildParams{
		SourceChainSelector:      req.SourceChainSelector,
		DestinationChainSelector: req.DestinationChainSelector,
		Sender:                   req.SourceAddress,
		Receiver:                 req.TargetAddress,
		Payload:                  req.Payload,
		TokenAmounts: []message.TokenAmount{{
			TokenAddress: common.HexToAddress(req.TokenContract),
			Amount:       new(big.Int).Set(req.Amount),
			Decimals:     req.TokenDecimals,
			Symbol:       req.TokenSymbol,
		}},
		ExtraArgs: extraArgs,
	})
	if err != nil {
		return "", errors.Wrap(err, "building message")
	}

	txID, err := b.storage.Create(ctx, &txstore.BridgeTransaction{
		MessageID:                msg.ID,
		SourceChainSelector:      req.SourceChainSelector,
		DestinationChainSelector: req.DestinationChainSelector,
		SourceAddress:            req.SourceAddress,
		TargetAddress:            req.TargetAddress,
		TokenContract:            req.TokenContract,
		TokenSymbol:              req.TokenSymbol,
		Amount:                   req.Amount,
		FeeEstimate:              estimate,
	})
	if err != nil {
		return "", errors.Wrap(err, "creating bridge transaction")
	}

	if err := msg.SetExecutionState(message.StatePending); err != nil {
		return "", err
	}
	verdicts, err := b.engine.StartRound(msg.ID, msg.ContentHash())
	if err != nil {
		return "", errors.Wrap(err, "opening consensus round")
	}
	b.messages.put(txID, msg)

	srcName := b.chainLabel(req.SourceChainSelector)
	dstName := b.chainLabel(req.DestinationChainSelector)
	metrics.RecordTransfer(srcName, dstName, req.TokenSymbol)
	log.Infof("bridge transaction %s accepted: %s %s on lane %s -> %s, total fee %s",
		txID, req.Amount.String(), req.TokenSymbol, srcName, dstName, estimate.TotalFee.String())

	go b.awaitVerdict(txID, msg, srcName, dstName, verdicts)
	return txID, nil
}

// awaitVerdict consumes the terminal consensus verdict for one round and
// drives the transaction to its final status.
func (b *BridgeController) awaitVerdict(txID string, msg *message.CCIPMessage, srcName, dstName string, verdicts <-chan consensus.Verdict) {
	started := time.Now()
	verdict := <-verdicts
	metrics.RecordConsensusRoundDuration(time.Since(started), verdict.Approved)

	ctx := context.Background()
	if verdict.Approved {
		if err := msg.SetExecutionState(message.StateSourceConfirmed); err != nil {
			log.Errorf("message %s: %v", msg.ID, err)
			return
		}
		if err := b.dispatch.Execute(ctx, txID, msg); err != nil {
			log.Errorf("bridge transaction %s failed executing: %v", txID, err)
			metrics.RecordTransferFinal(srcName, dstName, txstore.StatusFailed.String())
			return
		}
		log.Infof("bridge transaction %s completed", txID)
		metrics.RecordTransferFinal(srcName, dstName, txstore.StatusCompleted.String())
		return
	}

	cause := "consensus rejected the message"
	if verdict.Cause != nil {
		cause = verdict.Cause.Error()
	}
	if err := b.dispatch.Fail(ctx, txID, msg, cause); err != nil {
		log.Errorf("bridge transaction %s: recording failure: %v", txID, err)
		return
	}
	log.Infof("bridge transaction %s failed: %s", txID, cause)
	metrics.RecordTransferFinal(srcName, dstName, txstore.StatusFailed.String())
}

// SubmitVote forwards a validator vote to the consensus engine and mirrors
// it into the transaction audit trail.
func (b *BridgeController) SubmitVote(ctx context.Context, messageID string, vote consensus.Vote) (consensus.Snapshot, error) {
	snapshot, err := b.engine.SubmitVote(ctx, messageID, vote)
	if err != nil {
		return snapshot, err
	}
	metrics.RecordVote(vote.ValidatorID, vote.Approved)
	if txID, ok := b.messages.transactionID(messageID); ok {
		if err := b.storage.AddVote(ctx, txID, txstore.VoteRecord{
			ValidatorID: vote.ValidatorID,
			Approved:    vote.Approved,
			Signature:   vote.Signature,
			CastAt:      vote.CastAt,
		}); err != nil {
			log.Warnf("recording vote for transaction %s: %v", txID, err)
		}
	}
	return snapshot, nil
}

// EstimateBridgeFee quotes a transfer without initiating it. Quotes are
// deterministic for identical inputs, so they are cached.
func (b *BridgeController) EstimateBridgeFee(ctx context.Context, sourceChain, targetChain uint64, amount *big.Int, tokenSymbol string) (*estimatefee.Estimate, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, gerror.ErrNonPositiveAmount
	}
	key := fmt.Sprintf("%d:%d:%s:%s", sourceChain, targetChain, amount.String(), tokenSymbol)
	if cached, ok := b.quoteCache.Get(key); ok {
		return cloneEstimate(cached), nil
	}
	estimate, err := b.estimator.Estimate(ctx, sourceChain, targetChain, amount, tokenSymbol)
	if err != nil {
		return nil, err
	}
	b.quoteCache.Add(key, cloneEstimate(estimate))
	return estimate, nil
}

// GetBridgeTransaction returns a copy of one transaction by ID.
func (b *BridgeController) GetBridgeTransaction(ctx context.Context, transactionID string) (*txstore.BridgeTransaction, error) {
	return b.storage.Get(ctx, transactionID)
}

// GetBridgeTransactions returns every transaction where the address is the
// sender or the receiver, newest first.
func (b *BridgeController) GetBridgeTransactions(ctx context.Context, address string) ([]*txstore.BridgeTransaction, error) {
	return b.storage.ListByAddress(ctx, address)
}

// GetMessage returns the in-memory message for a transaction.
func (b *BridgeController) GetMessage(transactionID string) (*message.CCIPMessage, error) {
	return b.messages.get(transactionID)
}

// GetSupportedChains returns the active chains, sorted by selector.
func (b *BridgeController) GetSupportedChains() []chainregistry.ChainInfo {
	return b.registry.ListSupportedChains()
}

// GetLaneStatus reports whether a directional lane is usable and why not.
func (b *BridgeController) GetLaneStatus(src, dst uint64) (chainregistry.LaneStatus, error) {
	return b.registry.LaneStatus(src, dst)
}

func (b *BridgeController) chainLabel(selector uint64) string {
	name, err := b.registry.ChainName(selector)
	if err != nil {
		return fmt.Sprintf("%d", selector)
	}
	return name
}

func cloneEstimate(e *estimatefee.Estimate) *estimatefee.Estimate {
	return &estimatefee.Estimate{
		BridgeFee:   new(big.Int).Set(e.BridgeFee),
		GasFee:      new(big.Int).Set(e.GasFee),
		TotalFee:    new(big.Int).Set(e.TotalFee),
		TokenSymbol: e.TokenSymbol,
	}
}
