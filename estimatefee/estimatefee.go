// Package estimatefee computes the bridge and gas fee quote for a
// prospective transfer. The computation is deterministic for a given
// market-rate snapshot.
package estimatefee

import (
	"context"
	"math/big"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/crosslane/bridge-service/log"
	"github.com/crosslane/bridge-service/pricing"
	"github.com/pkg/errors"
)

const (
	bpsDenominator = 10_000

	defaultFeeRateBps   = 10 // 0.1%
	defaultMinimumFee   = 1_000
	defaultBaseGasUnits = 250_000
)

// Config holds the fee schedule.
type Config struct {
	// DefaultFeeRateBps is the bridge fee rate in basis points applied to
	// lanes without an override.
	DefaultFeeRateBps uint64 `mapstructure:"DefaultFeeRateBps"`

	// MinimumFee is the bridge fee floor in the token's smallest unit.
	MinimumFee uint64 `mapstructure:"MinimumFee"`

	// DefaultBaseGasUnits is the destination execution gas budget applied to
	// lanes without an override.
	DefaultBaseGasUnits uint64 `mapstructure:"DefaultBaseGasUnits"`

	// FallbackGasPrice is used when the pricing snapshot has no gas price
	// for the destination chain yet.
	FallbackGasPrice uint64 `mapstructure:"FallbackGasPrice"`

	// LaneOverrides tune the schedule per directional lane.
	LaneOverrides []LaneFeeConfig `mapstructure:"LaneOverrides"`
}

// LaneFeeConfig overrides the fee schedule of one directional lane.
type LaneFeeConfig struct {
	SourceChainSelector      uint64 `mapstructure:"SourceChainSelector"`
	DestinationChainSelector uint64 `mapstructure:"DestinationChainSelector"`
	FeeRateBps               uint64 `mapstructure:"FeeRateBps"`
	BaseGasUnits             uint64 `mapstructure:"BaseGasUnits"`
}

// Estimate is a fee quote. TotalFee is always BridgeFee + GasFee.
type Estimate struct {
	BridgeFee   *big.Int
	GasFee      *big.Int
	TotalFee    *big.Int
	TokenSymbol string
}

// Estimator quotes fees for prospective transfers.
type Estimator interface {
	Estimate(ctx context.Context, sourceChain, targetChain uint64, amount *big.Int, tokenSymbol string) (*Estimate, error)
}

type laneKey struct {
	src uint64
	dst uint64
}

type estimatorImpl struct {
	chains    ChainDirectory
	prices    pricing.Oracle
	cfg       Config
	overrides map[laneKey]LaneFeeConfig
}

// NewEstimator creates an Estimator over the given chain directory and
// pricing snapshot. Zero config values fall back to built-in defaults so a
// quote can never be free.
func NewEstimator(chains ChainDirectory, prices pricing.Oracle, cfg Config) Estimator {
	if cfg.DefaultFeeRateBps == 0 {
		cfg.DefaultFeeRateBps = defaultFeeRateBps
	}
	if cfg.MinimumFee == 0 {
		cfg.MinimumFee = defaultMinimumFee
	}
	if cfg.DefaultBaseGasUnits == 0 {
		cfg.DefaultBaseGasUnits = defaultBaseGasUnits
	}
	if cfg.FallbackGasPrice == 0 {
		cfg.FallbackGasPrice = 1
	}
	overrides := make(map[laneKey]LaneFeeConfig, len(cfg.LaneOverrides))
	for _, o := range cfg.LaneOverrides {
		overrides[laneKey{src: o.SourceChainSelector, dst: o.DestinationChainSelector}] = o
	}
	return &estimatorImpl{chains: chains, prices: prices, cfg: cfg, overrides: overrides}
}

func (e *estimatorImpl) Estimate(ctx context.Context, sourceChain, targetChain uint64, amount *big.Int, tokenSymbol string) (*Estimate, error) {
	if !e.chains.IsSupported(sourceChain) {
		return nil, errors.Wrapf(gerror.ErrUnsupportedChain, "source selector %d", sourceChain)
	}
	if !e.chains.IsSupported(targetChain) {
		return nil, errors.Wrapf(gerror.ErrUnsupportedChain, "target selector %d", targetChain)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, gerror.ErrNonPositiveAmount
	}

	rateBps, baseGasUnits := e.laneSchedule(sourceChain, targetChain)

	// bridgeFee = max(minimumFee, amount * rate)
	bridgeFee := new(big.Int).Mul(amount, new(big.Int).SetUint64(rateBps))
	bridgeFee.Div(bridgeFee, big.NewInt(bpsDenominator))
	minFee := new(big.Int).SetUint64(e.cfg.MinimumFee)
	if bridgeFee.Cmp(minFee) < 0 {
		bridgeFee = minFee
	}

	gasFee := new(big.Int).Mul(new(big.Int).SetUint64(baseGasUnits), e.gasPrice(ctx, targetChain))

	est := &Estimate{
		BridgeFee:   bridgeFee,
		GasFee:      gasFee,
		TotalFee:    new(big.Int).Add(bridgeFee, gasFee),
		TokenSymbol: tokenSymbol,
	}
	log.Debugf("fee estimate lane[%d -> %d] amount[%s] bridge[%s] gas[%s] total[%s]",
		sourceChain, targetChain, amount, est.BridgeFee, est.GasFee, est.TotalFee)
	return est, nil
}

func (e *estimatorImpl) laneSchedule(src, dst uint64) (rateBps, baseGasUnits uint64) {
	rateBps = e.cfg.DefaultFeeRateBps
	baseGasUnits = e.cfg.DefaultBaseGasUnits
	if o, ok := e.overrides[laneKey{src: src, dst: dst}]; ok {
		if o.FeeRateBps > 0 {
			rateBps = o.FeeRateBps
		}
		if o.BaseGasUnits > 0 {
			baseGasUnits = o.BaseGasUnits
		}
	}
	return rateBps, baseGasUnits
}

func (e *estimatorImpl) gasPrice(ctx context.Context, targetChain uint64) *big.Int {
	price, err := e.prices.GasPrice(ctx, targetChain)
	if err == nil && price.Sign() > 0 {
		return price
	}
	if err != nil && !errors.Is(err, gerror.ErrNotFound) {
		log.Warnf("gas price lookup for chain %d failed, using fallback: %v", targetChain, err)
	}
	return new(big.Int).SetUint64(e.cfg.FallbackGasPrice)
}
