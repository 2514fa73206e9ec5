package standings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/to404hanga/pkg404/logger"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

const rankCacheKeyPrefix = "ranklist:"

// RankCache keeps a JSON snapshot of each contest ranklist in redis.
type RankCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRankCache(rdb redis.Cmdable, ttl time.Duration) *RankCache {
	return &RankCache{rdb: rdb, ttl: ttl}
}

func RankCacheKey(contestID uint64) string {
	return fmt.Sprintf("%s%d", rankCacheKeyPrefix, contestID)
}

// Get returns the cached ranklist; ok is false on a cache miss.
func (c *RankCache) Get(ctx context.Context, contestID uint64) (list []RankEntry, ok bool, err error) {
	raw, err := c.rdb.Get(ctx, RankCacheKey(contestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get ranklist cache: %w", err)
	}
	if err = json.Unmarshal(raw, &list); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal ranklist cache: %w", err)
	}
	return list, true, nil
}

func (c *RankCache) Set(ctx context.Context, contestID uint64, list []RankEntry) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal ranklist: %w", err)
	}
	if err = c.rdb.Set(ctx, RankCacheKey(contestID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set ranklist cache: %w", err)
	}
	return nil
}

func (c *RankCache) Invalidate(ctx context.Context, contestID uint64) error {
	return c.rdb.Del(ctx, RankCacheKey(contestID)).Err()
}

// Refresh recomputes the ranklist from the ledger and overwrites the snapshot.
func (c *RankCache) Refresh(ctx context.Context, ledger *Ledger, contestID uint64) ([]RankEntry, error) {
	list, err := ledger.Ranklist(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if err = c.Set(ctx, contestID, list); err != nil {
		return nil, err
	}
	return list, nil
}

// CachedRanklist serves the ranklist from cache and falls back to the
// ledger on a miss or a cache failure.
func CachedRanklist(ctx context.Context, log loggerv2.Logger, cache *RankCache, ledger *Ledger, contestID uint64) ([]RankEntry, error) {
	list, ok, err := cache.Get(ctx, contestID)
	if err != nil {
		log.WarnContext(ctx, "read ranklist cache failed", logger.Uint64("contest_id", contestID), logger.Error(err))
	}
	if ok {
		return list, nil
	}
	list, err = ledger.Ranklist(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if err = cache.Set(ctx, contestID, list); err != nil {
		log.WarnContext(ctx, "write ranklist cache failed", logger.Uint64("contest_id", contestID), logger.Error(err))
	}
	return list, nil
}
