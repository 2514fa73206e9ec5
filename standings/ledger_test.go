package standings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/to404hanga/online_judge_pipeline/model"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

var contestStart = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T, problemIDs ...uint64) (*Ledger, *MemoryStore, *model.Contest) {
	t.Helper()
	contest := &model.Contest{
		ID:        1,
		StartTime: contestStart,
		EndTime:   contestStart.Add(5 * time.Hour),
	}
	store := NewMemoryStore()
	store.SetProblems(contest.ID, problemIDs...)
	return NewLedger(loggerv2.GetGlobalLogger(), store, store), store, contest
}

func contestSubmission(contestID, userID, problemID uint64, status model.SubmissionStatus, after time.Duration) *model.Submission {
	return &model.Submission{
		UserID:     userID,
		ProblemID:  problemID,
		ContestID:  &contestID,
		SubmitTime: contestStart.Add(after),
		Status:     status,
	}
}

func mustApply(t *testing.T, l *Ledger, contest *model.Contest, sub *model.Submission) {
	t.Helper()
	if err := l.Apply(context.Background(), contest, sub); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
}

func TestApplyPenalty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, contest := newTestLedger(t, 10)
	if err := l.Register(ctx, contest.ID, 7); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	mustApply(t, l, contest, contestSubmission(contest.ID, 7, 10, model.SubmissionStatusWrongAnswer, 30*time.Minute))
	mustApply(t, l, contest, contestSubmission(contest.ID, 7, 10, model.SubmissionStatusAccepted, 120*time.Minute+40*time.Second))

	details, err := l.ScoreDetails(ctx, contest.ID, 7)
	if err != nil {
		t.Fatalf("score details failed: %v", err)
	}
	ps := details[10]
	if !ps.Solved() || *ps.SolveMinutes != 120 || ps.Attempts != 1 {
		t.Fatalf("unexpected problem state: %+v", ps)
	}
	score, penalty := Score(details, []uint64{10})
	if score != 1 || penalty != 140 {
		t.Fatalf("expected score 1 penalty 140, got %d %d", score, penalty)
	}
}

func TestApplyFirstAcceptanceWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, contest := newTestLedger(t, 10)
	_ = l.Register(ctx, contest.ID, 7)

	mustApply(t, l, contest, contestSubmission(contest.ID, 7, 10, model.SubmissionStatusAccepted, 15*time.Minute))
	mustApply(t, l, contest, contestSubmission(contest.ID, 7, 10, model.SubmissionStatusWrongAnswer, 20*time.Minute))
	mustApply(t, l, contest, contestSubmission(contest.ID, 7, 10, model.SubmissionStatusAccepted, 25*time.Minute))

	details, _ := l.ScoreDetails(ctx, contest.ID, 7)
	if *details[10].SolveMinutes != 15 || details[10].Attempts != 0 {
		t.Fatalf("solved problem was modified: %+v", details[10])
	}
}

func TestApplyIgnoresInfraErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, contest := newTestLedger(t, 10)
	_ = l.Register(ctx, contest.ID, 7)

	mustApply(t, l, contest, contestSubmission(contest.ID, 7, 10, model.SubmissionStatusCompileError, time.Minute))
	mustApply(t, l, contest, contestSubmission(contest.ID, 7, 10, model.SubmissionStatusSystemError, 2*time.Minute))
	mustApply(t, l, contest, contestSubmission(contest.ID, 7, 10, model.SubmissionStatusAccepted, 3*time.Minute))

	details, _ := l.ScoreDetails(ctx, contest.ID, 7)
	if details[10].Attempts != 0 || *details[10].SolveMinutes != 3 {
		t.Fatalf("compile or system errors were counted: %+v", details[10])
	}
}

func TestApplyRejects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, contest := newTestLedger(t, 10)

	err := l.Apply(ctx, contest, contestSubmission(contest.ID, 9, 10, model.SubmissionStatusAccepted, time.Minute))
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}

	_ = l.Register(ctx, contest.ID, 9)
	if err = l.Apply(ctx, contest, contestSubmission(contest.ID, 9, 10, model.SubmissionStatusPending, time.Minute)); err == nil {
		t.Fatalf("expected error for pending submission")
	}
	if err = l.Apply(ctx, contest, contestSubmission(contest.ID+1, 9, 10, model.SubmissionStatusAccepted, time.Minute)); err == nil {
		t.Fatalf("expected error for foreign contest submission")
	}
	practice := contestSubmission(contest.ID, 9, 10, model.SubmissionStatusAccepted, time.Minute)
	practice.ContestID = nil
	if err = l.Apply(ctx, contest, practice); err == nil {
		t.Fatalf("expected error for practice submission")
	}

	details, _ := l.ScoreDetails(ctx, contest.ID, 9)
	if len(details) != 0 {
		t.Fatalf("rejected submissions changed standings: %+v", details)
	}
}

func TestRanklistOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, contest := newTestLedger(t, 1, 2)
	_ = l.Register(ctx, contest.ID, 1, 2, 3)

	// A: 1 题 30 分钟, B: 1 题 40 分钟, C: 2 题
	mustApply(t, l, contest, contestSubmission(contest.ID, 1, 1, model.SubmissionStatusAccepted, 30*time.Minute))
	mustApply(t, l, contest, contestSubmission(contest.ID, 2, 1, model.SubmissionStatusAccepted, 40*time.Minute))
	mustApply(t, l, contest, contestSubmission(contest.ID, 3, 1, model.SubmissionStatusAccepted, 100*time.Minute))
	mustApply(t, l, contest, contestSubmission(contest.ID, 3, 2, model.SubmissionStatusAccepted, 200*time.Minute))

	list, err := l.Ranklist(ctx, contest.ID)
	if err != nil {
		t.Fatalf("ranklist failed: %v", err)
	}
	want := []struct {
		user    uint64
		score   int
		penalty int64
	}{{3, 2, 300}, {1, 1, 30}, {2, 1, 40}}
	if len(list) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(list))
	}
	for i, w := range want {
		if list[i].UserID != w.user || list[i].Score != w.score || list[i].Penalty != w.penalty || list[i].Rank != i+1 {
			t.Fatalf("entry %d: expected %+v, got %+v", i, w, list[i])
		}
	}
}

func TestBuildRanklistTies(t *testing.T) {
	t.Parallel()
	solved := func(m int64) model.ScoreDetails {
		return model.ScoreDetails{1: {SolveMinutes: &m}}
	}
	entries := []model.ContestUser{
		{UserID: 9, ScoreDetails: solved(10)},
		{UserID: 4, ScoreDetails: solved(10)},
		{UserID: 5, ScoreDetails: model.ScoreDetails{}},
		{UserID: 2, ScoreDetails: solved(5)},
	}
	list := BuildRanklist(entries, []uint64{1})

	wantUsers := []uint64{2, 4, 9, 5}
	wantRanks := []int{1, 2, 2, 4}
	for i := range list {
		if list[i].UserID != wantUsers[i] || list[i].Rank != wantRanks[i] {
			t.Fatalf("entry %d: got user %d rank %d", i, list[i].UserID, list[i].Rank)
		}
	}
}

func TestScoreIgnoresProblemsOutsideContest(t *testing.T) {
	t.Parallel()
	m := int64(12)
	details := model.ScoreDetails{
		1: {SolveMinutes: &m, Attempts: 2},
		2: {Attempts: 5},
		3: {SolveMinutes: &m},
	}
	score, penalty := Score(details, []uint64{1, 2})
	if score != 1 || penalty != 52 {
		t.Fatalf("expected score 1 penalty 52, got %d %d", score, penalty)
	}
}

func TestSolveMinutesRoundsDown(t *testing.T) {
	t.Parallel()
	if got := SolveMinutes(contestStart, contestStart.Add(59*time.Second)); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := SolveMinutes(contestStart, contestStart.Add(61*time.Minute+59*time.Second)); got != 61 {
		t.Fatalf("expected 61, got %d", got)
	}
	// 开赛前的提交
	if got := SolveMinutes(contestStart, contestStart.Add(-9*time.Minute-30*time.Second)); got != -10 {
		t.Fatalf("expected -10, got %d", got)
	}
}

func TestApplyWithCommit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, store, contest := newTestLedger(t, 1)
	_ = l.Register(ctx, contest.ID, 7)

	commitErr := errors.New("deadlock found")
	err := l.ApplyWith(ctx, contest, contestSubmission(contest.ID, 7, 1, model.SubmissionStatusWrongAnswer, time.Minute),
		func(context.Context, UpdateFunc) error { return commitErr })
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected commit error, got %v", err)
	}
	details, _ := l.ScoreDetails(ctx, contest.ID, 7)
	if len(details) != 0 {
		t.Fatalf("failed commit changed standings: %+v", details)
	}

	var gotNil bool
	err = l.ApplyWith(ctx, contest, contestSubmission(contest.ID, 7, 1, model.SubmissionStatusCompileError, time.Minute),
		func(_ context.Context, fn UpdateFunc) error {
			gotNil = fn == nil
			return nil
		})
	if err != nil || !gotNil {
		t.Fatalf("compile error should commit without an entry update, err %v", err)
	}

	err = l.ApplyWith(ctx, contest, contestSubmission(contest.ID, 7, 1, model.SubmissionStatusAccepted, 42*time.Minute),
		func(ctx context.Context, fn UpdateFunc) error {
			return store.Update(ctx, contest.ID, 7, fn)
		})
	if err != nil {
		t.Fatalf("apply with failed: %v", err)
	}
	details, _ = l.ScoreDetails(ctx, contest.ID, 7)
	if ps := details[1]; ps == nil || !ps.Solved() || *ps.SolveMinutes != 42 {
		t.Fatalf("unexpected details: %+v", details)
	}
}

func TestSolvedProblemsAndUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, contest := newTestLedger(t, 3, 1, 2)
	_ = l.Register(ctx, contest.ID, 8, 6)
	_ = l.Register(ctx, contest.ID, 6)

	mustApply(t, l, contest, contestSubmission(contest.ID, 6, 2, model.SubmissionStatusAccepted, time.Minute))
	mustApply(t, l, contest, contestSubmission(contest.ID, 6, 3, model.SubmissionStatusAccepted, time.Minute))
	mustApply(t, l, contest, contestSubmission(contest.ID, 6, 1, model.SubmissionStatusRuntimeError, time.Minute))

	solved, err := l.SolvedProblems(ctx, contest.ID, 6)
	if err != nil {
		t.Fatalf("solved problems failed: %v", err)
	}
	if len(solved) != 2 || solved[0] != 3 || solved[1] != 2 {
		t.Fatalf("unexpected solved problems: %v", solved)
	}

	users, _ := l.Users(ctx, contest.ID)
	if len(users) != 2 || users[0] != 6 || users[1] != 8 {
		t.Fatalf("unexpected users: %v", users)
	}
	_ = l.Unregister(ctx, contest.ID, 8)
	users, _ = l.Users(ctx, contest.ID)
	if len(users) != 1 || users[0] != 6 {
		t.Fatalf("unexpected users after unregister: %v", users)
	}
	if _, err = l.ScoreDetails(ctx, contest.ID, 8); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestApplyConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, contest := newTestLedger(t, 1, 2)
	_ = l.Register(ctx, contest.ID, 1, 2)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		for _, uid := range []uint64{1, 2} {
			wg.Add(1)
			go func(uid uint64, pid uint64) {
				defer wg.Done()
				sub := contestSubmission(contest.ID, uid, pid, model.SubmissionStatusWrongAnswer, time.Minute)
				if err := l.Apply(ctx, contest, sub); err != nil {
					t.Errorf("apply failed: %v", err)
				}
			}(uid, uint64(i%2+1))
		}
	}
	wg.Wait()

	for _, uid := range []uint64{1, 2} {
		details, _ := l.ScoreDetails(ctx, contest.ID, uid)
		if got := details[1].Attempts + details[2].Attempts; got != n {
			t.Fatalf("user %d: expected %d attempts, got %d", uid, n, got)
		}
	}
	if l.locks.size() != 0 {
		t.Fatalf("entry locks leaked: %d", l.locks.size())
	}
}
