package localcache

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/crosslane/bridge-service/log"
	"github.com/crosslane/bridge-service/pricing"
	"github.com/ethereum/go-ethereum/common"
)

const defaultRefreshInterval = 5 * time.Minute

// PriceCache is a read-through cache in front of a pricing.Oracle. Reads
// populate the cache; a background loop refreshes every known key so fee
// quotes keep using a recent, consistent snapshot even when the backing
// feed is slow.
type PriceCache struct {
	lock            sync.RWMutex
	unit            map[common.Address]*big.Rat
	gasPrices       map[uint64]*big.Int
	backing         pricing.Oracle
	refreshInterval time.Duration
}

// NewPriceCache creates a cache over the backing oracle. A non-positive
// refresh interval falls back to the default of 5 minutes.
func NewPriceCache(backing pricing.Oracle, refreshInterval time.Duration) *PriceCache {
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}
	return &PriceCache{
		unit:            make(map[common.Address]*big.Rat),
		gasPrices:       make(map[uint64]*big.Int),
		backing:         backing,
		refreshInterval: refreshInterval,
	}
}

// Start runs the refresh loop until ctx is cancelled.
func (c *PriceCache) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refresh(ctx)
			}
		}
	}()
}

func (c *PriceCache) refresh(ctx context.Context) {
	c.lock.RLock()
	tokens := make([]common.Address, 0, len(c.unit))
	for token := range c.unit {
		tokens = append(tokens, token)
	}
	chains := make([]uint64, 0, len(c.gasPrices))
	for selector := range c.gasPrices {
		chains = append(chains, selector)
	}
	c.lock.RUnlock()

	for _, token := range tokens {
		price, err := c.backing.UnitPrice(ctx, token)
		if err != nil {
			log.Warnf("price cache refresh: unit price for %s: %v", token.Hex(), err)
			continue
		}
		c.lock.Lock()
		c.unit[token] = price
		c.lock.Unlock()
	}
	for _, selector := range chains {
		price, err := c.backing.GasPrice(ctx, selector)
		if err != nil {
			log.Warnf("price cache refresh: gas price for chain %d: %v", selector, err)
			continue
		}
		c.lock.Lock()
		c.gasPrices[selector] = price
		c.lock.Unlock()
	}
	log.Debugf("price cache refreshed, tokens[%d] chains[%d]", len(tokens), len(chains))
}

// UnitPrice returns the cached token price, fetching it on first use.
func (c *PriceCache) UnitPrice(ctx context.Context, token common.Address) (*big.Rat, error) {
	c.lock.RLock()
	price, ok := c.unit[token]
	c.lock.RUnlock()
	if ok {
		return new(big.Rat).Set(price), nil
	}

	price, err := c.backing.UnitPrice(ctx, token)
	if err != nil {
		return nil, err
	}
	c.lock.Lock()
	c.unit[token] = price
	c.lock.Unlock()
	return new(big.Rat).Set(price), nil
}

// GasPrice returns the cached gas price, fetching it on first use.
func (c *PriceCache) GasPrice(ctx context.Context, chainSelector uint64) (*big.Int, error) {
	c.lock.RLock()
	price, ok := c.gasPrices[chainSelector]
	c.lock.RUnlock()
	if ok {
		return new(big.Int).Set(price), nil
	}

	price, err := c.backing.GasPrice(ctx, chainSelector)
	if err != nil {
		return nil, err
	}
	c.lock.Lock()
	c.gasPrices[chainSelector] = price
	c.lock.Unlock()
	return new(big.Int).Set(price), nil
}
