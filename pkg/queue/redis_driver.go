package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shashiranjanraj/billbook/pkg/logger"
)

const (
	redisQueueKey   = "billbook:queue:jobs"
	redisDelayedKey = "billbook:queue:delayed"
	popTimeout      = 5 * time.Second
)

// RedisDriver keeps jobs in Redis so they survive restarts and are shared
// between instances. Immediate jobs live in a list (LPUSH/BRPOP), delayed
// ones in a sorted set scored by their due time.
type RedisDriver struct {
	rdb *redis.Client
}

// NewRedisDriver wraps rdb (normally cache.RDB). Run PromoteDelayed in a
// goroutine for delayed jobs to be released.
func NewRedisDriver(rdb *redis.Client) *RedisDriver {
	return &RedisDriver{rdb: rdb}
}

func (d *RedisDriver) Push(payload []byte) error {
	if err := d.rdb.LPush(context.Background(), redisQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	result, err := d.rdb.BRPop(ctx, popTimeout, redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

func (d *RedisDriver) PushDelayed(payload []byte, delay time.Duration) error {
	runAt := float64(time.Now().Add(delay).Unix())
	err := d.rdb.ZAdd(context.Background(), redisDelayedKey, redis.Z{Score: runAt, Member: string(payload)}).Err()
	if err != nil {
		return fmt.Errorf("queue/redis: push delayed: %w", err)
	}
	return nil
}

// PromoteDelayed moves due delayed jobs onto the main list once a second
// until ctx is done.
func (d *RedisDriver) PromoteDelayed(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := strconv.FormatInt(time.Now().Unix(), 10)
		jobs, err := d.rdb.ZRangeByScore(ctx, redisDelayedKey, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
		if err != nil || len(jobs) == 0 {
			continue
		}

		pipe := d.rdb.TxPipeline()
		for _, job := range jobs {
			pipe.ZRem(ctx, redisDelayedKey, job)
			pipe.LPush(ctx, redisQueueKey, job)
		}
		if _, err := pipe.Exec(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("queue/redis: promote delayed jobs", "error", err)
		}
	}
}
