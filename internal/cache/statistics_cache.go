package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/finance-tracker/internal/models"
	"github.com/redis/go-redis/v9"
)

// StatisticsCache stores computed statistics per user in redis
type StatisticsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStatisticsCache creates a cache whose entries expire after ttl
func NewStatisticsCache(rdb *redis.Client, ttl time.Duration) *StatisticsCache {
	return &StatisticsCache{rdb: rdb, ttl: ttl}
}

func statisticsKey(userID uint) string {
	return fmt.Sprintf("stats:%d", userID)
}

func generationKey(userID uint) string {
	return fmt.Sprintf("stats:gen:%d", userID)
}

// Get returns the cached statistics, or ok=false on a miss
func (c *StatisticsCache) Get(ctx context.Context, userID uint) (*models.Statistics, bool, error) {
	data, err := c.rdb.Get(ctx, statisticsKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stats models.Statistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, false, err
	}
	return &stats, true, nil
}

// Generation returns the user's invalidation counter. Read it before
// computing the value passed to Set.
func (c *StatisticsCache) Generation(ctx context.Context, userID uint) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Set stores statistics only if no Invalidate ran since gen was read.
// It reports whether the value was stored.
func (c *StatisticsCache) Set(ctx context.Context, userID uint, gen int64, stats *models.Statistics) (bool, error) {
	data, err := json.Marshal(stats)
	if err != nil {
		return false, err
	}

	genKey := generationKey(userID)
	stored := false
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, statisticsKey(userID), data, c.ttl)
			return nil
		})
		stored = err == nil
		return err
	}, genKey)

	// the generation moved between WATCH and EXEC
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// Invalidate bumps the user's generation and drops the cached statistics
func (c *StatisticsCache) Invalidate(ctx context.Context, userID uint) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(userID))
		pipe.Del(ctx, statisticsKey(userID))
		return nil
	})
	return err
}
