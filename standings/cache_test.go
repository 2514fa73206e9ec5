package standings

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/to404hanga/online_judge_pipeline/model"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

func newTestCache(t *testing.T) (*RankCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRankCache(rdb, time.Minute), mr
}

func TestRankCacheRefreshAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cache, mr := newTestCache(t)
	l, _, contest := newTestLedger(t, 1)
	_ = l.Register(ctx, contest.ID, 4, 5)
	mustApply(t, l, contest, contestSubmission(contest.ID, 5, 1, model.SubmissionStatusAccepted, 12*time.Minute))

	if _, ok, err := cache.Get(ctx, contest.ID); err != nil || ok {
		t.Fatalf("expected cache miss, got ok=%v err=%v", ok, err)
	}
	if _, err := cache.Refresh(ctx, l, contest.ID); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if ttl := mr.TTL(RankCacheKey(contest.ID)); ttl != time.Minute {
		t.Fatalf("unexpected ttl: %s", ttl)
	}

	list, ok, err := cache.Get(ctx, contest.ID)
	if err != nil || !ok {
		t.Fatalf("expected cache hit, got ok=%v err=%v", ok, err)
	}
	if len(list) != 2 || list[0].UserID != 5 || list[0].Penalty != 12 || list[1].Rank != 2 {
		t.Fatalf("unexpected cached ranklist: %+v", list)
	}
	if !list[0].ScoreDetails[1].Solved() {
		t.Fatalf("score details lost in cache: %+v", list[0].ScoreDetails)
	}

	if err = cache.Invalidate(ctx, contest.ID); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if mr.Exists(RankCacheKey(contest.ID)) {
		t.Fatalf("cache key still present after invalidate")
	}
}

func TestCachedRanklistFallsBackToLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cache, mr := newTestCache(t)
	l, _, contest := newTestLedger(t, 1)
	_ = l.Register(ctx, contest.ID, 4)

	list, err := CachedRanklist(ctx, loggerv2.GetGlobalLogger(), cache, l, contest.ID)
	if err != nil {
		t.Fatalf("cached ranklist failed: %v", err)
	}
	if len(list) != 1 || list[0].UserID != 4 {
		t.Fatalf("unexpected ranklist: %+v", list)
	}
	if !mr.Exists(RankCacheKey(contest.ID)) {
		t.Fatalf("ranklist was not written back to cache")
	}

	// 缓存中的旧快照优先于账本
	_ = l.Register(ctx, contest.ID, 5)
	list, _ = CachedRanklist(ctx, loggerv2.GetGlobalLogger(), cache, l, contest.ID)
	if len(list) != 1 {
		t.Fatalf("expected cached snapshot, got %+v", list)
	}
}

func TestCachedRanklistIgnoresCorruptCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cache, mr := newTestCache(t)
	l, _, contest := newTestLedger(t, 1)
	_ = l.Register(ctx, contest.ID, 4)
	if err := mr.Set(RankCacheKey(contest.ID), "not json"); err != nil {
		t.Fatalf("seed cache failed: %v", err)
	}

	list, err := CachedRanklist(ctx, loggerv2.GetGlobalLogger(), cache, l, contest.ID)
	if err != nil {
		t.Fatalf("cached ranklist failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("unexpected ranklist: %+v", list)
	}
}
