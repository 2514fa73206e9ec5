package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/to404hanga/online_judge_pipeline/model"
	"github.com/to404hanga/online_judge_pipeline/standings"
	"github.com/to404hanga/pkg404/cachex/lru"
	"github.com/to404hanga/pkg404/logger"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

const contestCacheKey = "contest:%d"

type SubmissionStore interface {
	Finalize(ctx context.Context, sub *model.Submission) error
	// FinalizeInContest persists sub and applies fn to the submitter's
	// standings entry in one transaction.
	FinalizeInContest(ctx context.Context, sub *model.Submission, fn standings.UpdateFunc) error
}

type ContestStore interface {
	Get(ctx context.Context, id uint64) (*model.Contest, error)
}

type StandingsApplier interface {
	ApplyWith(ctx context.Context, contest *model.Contest, sub *model.Submission, commit standings.CommitFunc) error
}

// Finalizer moves a pending submission to its terminal status and persists
// it. Contest submissions made at or before the contest end update the
// standings in the same transaction, so either both land or the submission
// stays pending.
type Finalizer struct {
	log         loggerv2.Logger
	submissions SubmissionStore
	contests    ContestStore
	standings   StandingsApplier
	cache       *lru.Cache
}

func NewFinalizer(log loggerv2.Logger, submissions SubmissionStore, contests ContestStore, applier StandingsApplier, cache *lru.Cache) *Finalizer {
	return &Finalizer{
		log:         log,
		submissions: submissions,
		contests:    contests,
		standings:   applier,
		cache:       cache,
	}
}

func (f *Finalizer) Finalize(ctx context.Context, sub *model.Submission, v model.Verdict) error {
	prev := *sub
	if err := sub.Transition(v); err != nil {
		return err
	}
	if err := f.persist(ctx, sub); err != nil {
		// 未落库时恢复为 Pending, 允许调用方重试
		if !errors.Is(err, standings.ErrNotRegistered) {
			*sub = prev
		}
		return err
	}
	return nil
}

func (f *Finalizer) persist(ctx context.Context, sub *model.Submission) error {
	if !sub.InContest() {
		return f.finalize(ctx, sub)
	}
	contest, err := f.contest(ctx, *sub.ContestID)
	if err != nil {
		return err
	}
	if !contest.Accepts(sub.SubmitTime) {
		f.log.InfoContext(ctx, "submission after contest end, standings untouched",
			logger.Uint64("contest_id", contest.ID),
			logger.String("submit_time", sub.SubmitTime.String()))
		return f.finalize(ctx, sub)
	}

	var persisted bool
	err = f.standings.ApplyWith(ctx, contest, sub, func(ctx context.Context, fn standings.UpdateFunc) error {
		err := f.submissions.FinalizeInContest(ctx, sub, fn)
		persisted = err == nil || errors.Is(err, standings.ErrNotRegistered)
		return err
	})
	if err != nil && !persisted {
		return fmt.Errorf("failed to persist contest submission: %w", err)
	}
	return err
}

func (f *Finalizer) finalize(ctx context.Context, sub *model.Submission) error {
	if err := f.submissions.Finalize(ctx, sub); err != nil {
		return fmt.Errorf("failed to persist submission: %w", err)
	}
	return nil
}

func (f *Finalizer) contest(ctx context.Context, id uint64) (*model.Contest, error) {
	key := fmt.Sprintf(contestCacheKey, id)
	if v, ok := f.cache.Get(key); ok {
		c := v.(model.Contest)
		return &c, nil
	}
	c, err := f.contests.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	f.cache.Add(key, *c)
	return c, nil
}
