package redisstorage

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of the go-redis API the price store depends on.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}
