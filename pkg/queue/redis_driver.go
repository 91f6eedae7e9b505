package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// RedisDriver keeps ready jobs in a list (LPUSH/BRPOP) and delayed jobs in
// a sorted set scored by the unix time they become due.
type RedisDriver struct {
	rdb        *redis.Client
	readyKey   string
	delayedKey string
}

// NewRedisDriver uses keys under prefix, e.g. "storefront:queue".
func NewRedisDriver(rdb *redis.Client, prefix string) *RedisDriver {
	return &RedisDriver{rdb: rdb, readyKey: prefix + ":jobs", delayedKey: prefix + ":delayed"}
}

func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.LPush(ctx, d.readyKey, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	res, err := d.rdb.BRPop(ctx, 5*time.Second, d.readyKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	}
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

func (d *RedisDriver) PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error {
	due := float64(time.Now().Add(delay).Unix())
	if err := d.rdb.ZAdd(ctx, d.delayedKey, redis.Z{Score: due, Member: string(payload)}).Err(); err != nil {
		return fmt.Errorf("queue/redis: push delayed: %w", err)
	}
	return nil
}

// Promote moves due delayed jobs onto the ready list every second until ctx
// is done.
func (d *RedisDriver) Promote(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.promoteDue(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("queue/redis: promote failed", "error", err)
			}
		}
	}
}

func (d *RedisDriver) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	due, err := d.rdb.ZRangeByScore(ctx, d.delayedKey, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil || len(due) == 0 {
		return err
	}
	for _, job := range due {
		// ZRem first so two promoters never push the same member twice.
		removed, err := d.rdb.ZRem(ctx, d.delayedKey, job).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := d.rdb.LPush(ctx, d.readyKey, job).Err(); err != nil {
			return err
		}
	}
	return nil
}
