package coalesce

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces coalescer keys.
const DefaultKeyPrefix = "wallets-monitor:cohort:"

// Redis is a Coalescer shared across processes. Each acquisition is a
// SET NX with the window as expiry.
type Redis struct {
	client redis.Cmdable
	prefix string
}

var _ Coalescer = (*Redis)(nil)

// NewRedis creates a Redis coalescer. An empty prefix uses DefaultKeyPrefix.
func NewRedis(client redis.Cmdable, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Acquire implements Coalescer.
func (r *Redis) Acquire(ctx context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, r.prefix+key, time.Now().Unix(), window).Result()
	if err != nil {
		return false, fmt.Errorf("coalesce %s: %w", key, err)
	}
	return ok, nil
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}
