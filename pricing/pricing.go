// Package pricing defines the market data seam consumed by the fee
// estimator and USD valuation. Implementations must be deterministic for a
// given snapshot; any randomness would make fee quotes unverifiable.
package pricing

import (
	"context"
	"math/big"
	"sync"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Oracle supplies token unit prices (in USD) and destination-chain gas
// prices (in the chain's smallest native unit per gas).
type Oracle interface {
	UnitPrice(ctx context.Context, token common.Address) (*big.Rat, error)
	GasPrice(ctx context.Context, chainSelector uint64) (*big.Int, error)
}

// Static is a fixed in-memory Oracle. It backs tests and bootstrap wiring
// before a live feed is connected.
type Static struct {
	mu        sync.RWMutex
	unit      map[common.Address]*big.Rat
	gasPrices map[uint64]*big.Int
}

// NewStatic creates an empty static oracle.
func NewStatic() *Static {
	return &Static{
		unit:      make(map[common.Address]*big.Rat),
		gasPrices: make(map[uint64]*big.Int),
	}
}

// SetUnitPrice records the USD unit price for a token.
func (s *Static) SetUnitPrice(token common.Address, price *big.Rat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unit[token] = new(big.Rat).Set(price)
}

// SetGasPrice records the gas price for a chain.
func (s *Static) SetGasPrice(chainSelector uint64, price *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gasPrices[chainSelector] = new(big.Int).Set(price)
}

// UnitPrice returns the recorded token price.
func (s *Static) UnitPrice(ctx context.Context, token common.Address) (*big.Rat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.unit[token]
	if !ok {
		return nil, errors.Wrapf(gerror.ErrNotFound, "unit price for token %s", token.Hex())
	}
	return new(big.Rat).Set(p), nil
}

// GasPrice returns the recorded gas price.
func (s *Static) GasPrice(ctx context.Context, chainSelector uint64) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.gasPrices[chainSelector]
	if !ok {
		return nil, errors.Wrapf(gerror.ErrNotFound, "gas price for chain %d", chainSelector)
	}
	return new(big.Int).Set(p), nil
}
