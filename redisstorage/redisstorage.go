// Package redisstorage keeps the market-rate snapshot (token unit prices
// and per-chain gas prices) in redis so that every bridge instance quotes
// fees from the same numbers.
package redisstorage

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/crosslane/bridge-service/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	unitPriceHashKey = "bridge_token_prices"
	gasPriceHashKey  = "bridge_gas_prices"
)

// PriceStorage implements pricing.Oracle on top of redis and adds the
// setters a price feeder uses to publish a snapshot.
type PriceStorage struct {
	client RedisClient
}

// NewPriceStorage connects to redis and pings it once to fail fast on
// misconfiguration.
func NewPriceStorage(cfg Config) (*PriceStorage, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	res, err := client.Ping(context.Background()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to redis server")
	}
	log.Debugf("redis health check done, result: %v", res)
	return &PriceStorage{client: client}, nil
}

// SetUnitPrice publishes the USD unit price of a token. The price is stored
// as an exact fraction string, never as a float.
func (s *PriceStorage) SetUnitPrice(ctx context.Context, token common.Address, price *big.Rat) error {
	if s == nil || s.client == nil {
		return errors.New("redis client is nil")
	}
	err := s.client.HSet(ctx, unitPriceHashKey, token.Hex(), price.RatString()).Err()
	return errors.Wrap(err, "SetUnitPrice")
}

// SetGasPrice publishes the gas price of a chain.
func (s *PriceStorage) SetGasPrice(ctx context.Context, chainSelector uint64, price *big.Int) error {
	if s == nil || s.client == nil {
		return errors.New("redis client is nil")
	}
	err := s.client.HSet(ctx, gasPriceHashKey, selectorField(chainSelector), price.String()).Err()
	return errors.Wrap(err, "SetGasPrice")
}

// UnitPrice reads the USD unit price of a token.
func (s *PriceStorage) UnitPrice(ctx context.Context, token common.Address) (*big.Rat, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("redis client is nil")
	}
	raw, err := s.client.HGet(ctx, unitPriceHashKey, token.Hex()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Wrapf(gerror.ErrNotFound, "unit price for token %s", token.Hex())
	}
	if err != nil {
		return nil, errors.Wrap(err, "UnitPrice")
	}
	price, ok := new(big.Rat).SetString(raw)
	if !ok {
		return nil, errors.Errorf("corrupted unit price %q for token %s", raw, token.Hex())
	}
	return price, nil
}

// GasPrice reads the gas price of a chain.
func (s *PriceStorage) GasPrice(ctx context.Context, chainSelector uint64) (*big.Int, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("redis client is nil")
	}
	raw, err := s.client.HGet(ctx, gasPriceHashKey, selectorField(chainSelector)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Wrapf(gerror.ErrNotFound, "gas price for chain %d", chainSelector)
	}
	if err != nil {
		return nil, errors.Wrap(err, "GasPrice")
	}
	price, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.Errorf("corrupted gas price %q for chain %d", raw, chainSelector)
	}
	return price, nil
}

func selectorField(chainSelector uint64) string {
	return fmt.Sprintf("chain_%s", strconv.FormatUint(chainSelector, 10))
}
