// Package standings keeps the per-contestant ICPC ledger and builds ranklists.
package standings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/to404hanga/online_judge_pipeline/model"
	"github.com/to404hanga/pkg404/logger"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

// PenaltyPerAttempt is the penalty in minutes charged for every rejected
// attempt on a problem that is eventually solved.
const PenaltyPerAttempt = 20

type Ledger struct {
	log      loggerv2.Logger
	store    Store
	problems ProblemSource
	locks    *keyedMutex
}

func NewLedger(log loggerv2.Logger, store Store, problems ProblemSource) *Ledger {
	return &Ledger{
		log:      log,
		store:    store,
		problems: problems,
		locks:    newKeyedMutex(),
	}
}

// Apply records one finalized contest submission. The first accepted
// submission of a problem freezes it; later submissions to a solved problem
// change nothing. Compile and system errors are ignored.
//
// Apply must be called at most once per submission, it does not deduplicate.
func (l *Ledger) Apply(ctx context.Context, contest *model.Contest, sub *model.Submission) error {
	return l.ApplyWith(ctx, contest, sub, func(ctx context.Context, fn UpdateFunc) error {
		if fn == nil {
			return nil
		}
		return l.store.Update(ctx, contest.ID, sub.UserID, fn)
	})
}

// ApplyWith is Apply with the entry update handed to commit, so the caller
// can persist it in the same transaction as the submission itself. commit
// receives a nil UpdateFunc for submissions that leave the standings as is.
// The entry lock is held while commit runs.
func (l *Ledger) ApplyWith(ctx context.Context, contest *model.Contest, sub *model.Submission, commit CommitFunc) error {
	if sub.ContestID == nil || *sub.ContestID != contest.ID {
		return fmt.Errorf("submission %d does not belong to contest %d", sub.ID, contest.ID)
	}
	if !sub.Status.IsTerminal() {
		return fmt.Errorf("submission %d is not finalized: %s", sub.ID, sub.Status)
	}
	if !sub.Status.IsGraded() {
		return commit(ctx, nil)
	}

	unlock := l.locks.Lock(entryKey{contestID: contest.ID, userID: sub.UserID})
	defer unlock()

	err := commit(ctx, func(entry *model.ContestUser) (bool, error) {
		if entry.ScoreDetails == nil {
			entry.ScoreDetails = model.ScoreDetails{}
		}
		return applySubmission(entry.ScoreDetails, contest.StartTime, sub), nil
	})
	if errors.Is(err, ErrNotRegistered) {
		l.log.ErrorContext(ctx, "contest submission from unregistered user",
			logger.Uint64("submission_id", sub.ID),
			logger.Uint64("contest_id", contest.ID),
			logger.Uint64("user_id", sub.UserID))
		return fmt.Errorf("submission %d contest %d user %d: %w", sub.ID, contest.ID, sub.UserID, err)
	}
	if err != nil {
		return fmt.Errorf("update standings failed: %w", err)
	}
	return nil
}

func applySubmission(details model.ScoreDetails, start time.Time, sub *model.Submission) bool {
	ps := details.Problem(sub.ProblemID)
	if ps.Solved() {
		return false
	}
	if sub.Status == model.SubmissionStatusAccepted {
		m := SolveMinutes(start, sub.SubmitTime)
		ps.SolveMinutes = &m
		return true
	}
	ps.Attempts++
	return true
}

// SolveMinutes is the whole number of minutes between the contest start and
// the submission, rounded down. It is negative for submissions made before
// the start.
func SolveMinutes(start, submitted time.Time) int64 {
	return int64(math.Floor(submitted.Sub(start).Minutes()))
}

// Score counts solved problems among problemIDs and sums their penalty.
func Score(details model.ScoreDetails, problemIDs []uint64) (score int, penalty int64) {
	for _, pid := range problemIDs {
		ps := details[pid]
		if !ps.Solved() {
			continue
		}
		score++
		penalty += *ps.SolveMinutes + int64(ps.Attempts)*PenaltyPerAttempt
	}
	return score, penalty
}

type RankEntry struct {
	Rank         int                `json:"rank"`
	UserID       uint64             `json:"user_id"`
	Score        int                `json:"score"`
	Penalty      int64              `json:"penalty"`
	ScoreDetails model.ScoreDetails `json:"score_details"`
}

func (l *Ledger) Ranklist(ctx context.Context, contestID uint64) ([]RankEntry, error) {
	problemIDs, err := l.problems.ProblemIDs(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contest problems: %w", err)
	}
	entries, err := l.store.List(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings: %w", err)
	}
	return BuildRanklist(entries, problemIDs), nil
}

// BuildRanklist orders entries by score descending, then penalty ascending.
// Ties keep user id order and share the same rank.
func BuildRanklist(entries []model.ContestUser, problemIDs []uint64) []RankEntry {
	list := make([]RankEntry, 0, len(entries))
	for i := range entries {
		score, penalty := Score(entries[i].ScoreDetails, problemIDs)
		list = append(list, RankEntry{
			UserID:       entries[i].UserID,
			Score:        score,
			Penalty:      penalty,
			ScoreDetails: entries[i].ScoreDetails.Clone(),
		})
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UserID < list[j].UserID
	})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].Penalty < list[j].Penalty
	})
	for i := range list {
		if i > 0 && list[i].Score == list[i-1].Score && list[i].Penalty == list[i-1].Penalty {
			list[i].Rank = list[i-1].Rank
			continue
		}
		list[i].Rank = i + 1
	}
	return list
}

// ScoreDetails returns a copy of the user's per-problem solve state.
func (l *Ledger) ScoreDetails(ctx context.Context, contestID, userID uint64) (model.ScoreDetails, error) {
	entry, err := l.store.Get(ctx, contestID, userID)
	if err != nil {
		return nil, err
	}
	return entry.ScoreDetails.Clone(), nil
}

// SolvedProblems returns the solved problems of a user in contest problem order.
func (l *Ledger) SolvedProblems(ctx context.Context, contestID, userID uint64) ([]uint64, error) {
	entry, err := l.store.Get(ctx, contestID, userID)
	if err != nil {
		return nil, err
	}
	problemIDs, err := l.problems.ProblemIDs(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contest problems: %w", err)
	}
	solved := make([]uint64, 0, len(problemIDs))
	for _, pid := range problemIDs {
		if entry.ScoreDetails[pid].Solved() {
			solved = append(solved, pid)
		}
	}
	return solved, nil
}

func (l *Ledger) Register(ctx context.Context, contestID uint64, userIDs ...uint64) error {
	return l.store.Register(ctx, contestID, userIDs...)
}

func (l *Ledger) Unregister(ctx context.Context, contestID uint64, userIDs ...uint64) error {
	return l.store.Unregister(ctx, contestID, userIDs...)
}

// Users returns the registered users of a contest ordered by id.
func (l *Ledger) Users(ctx context.Context, contestID uint64) ([]uint64, error) {
	entries, err := l.store.List(ctx, contestID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	return ids, nil
}
