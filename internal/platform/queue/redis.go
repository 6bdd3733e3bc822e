// Package queue carries command/response messages over Redis lists.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/config"
)

// ConnectAttempts bounds how many times Connect retries an unreachable Redis.
const ConnectAttempts = 5

// ErrEmpty is returned by Pop when no message arrived before the timeout.
var ErrEmpty = errors.New("queue: no message before timeout")

// Broker moves opaque payloads through named lists. Push appends to the list and
// Pop removes the oldest entry of the first non-empty key.
type Broker interface {
	Push(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Pop(ctx context.Context, timeout time.Duration, keys ...string) (key string, payload []byte, err error)
}

// Connect opens a Redis client and waits until it answers a ping.
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	backoff := retry.WithMaxRetries(ConnectAttempts, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.WarnContext(ctx, "redis not ready, retrying", "addr", cfg.RedisAddr, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = rdb.Close()
		return nil, common.Unavailable(err, "connect redis")
	}
	slog.InfoContext(ctx, "connected to Redis", "addr", cfg.RedisAddr)
	return rdb, nil
}

// RedisBroker implements Broker with LPUSH and BRPOP.
type RedisBroker struct {
	rdb redis.UniversalClient
}

func NewRedisBroker(rdb redis.UniversalClient) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

// Push appends payload to key. A positive ttl expires the whole list, which keeps
// abandoned reply lists from piling up.
func (b *RedisBroker) Push(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	_, err := b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, payload)
		if ttl > 0 {
			p.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return common.Unavailable(err, "queue push "+key)
	}
	return nil
}

// Pop blocks for up to timeout. A non-positive timeout blocks until ctx ends.
func (b *RedisBroker) Pop(ctx context.Context, timeout time.Duration, keys ...string) (string, []byte, error) {
	if timeout < 0 {
		timeout = 0
	}
	res, err := b.rdb.BRPop(ctx, timeout, keys...).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil, ErrEmpty
	case err != nil:
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		return "", nil, common.Unavailable(err, "queue pop")
	}
	// res is [key, value]
	if len(res) < 2 {
		return "", nil, ErrEmpty
	}
	return res[0], []byte(res[1]), nil
}
