package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/to404hanga/online_judge_pipeline/model"
	"github.com/to404hanga/online_judge_pipeline/standings"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "oj.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	err = db.AutoMigrate(&model.Submission{}, &model.Problem{}, &model.Contest{}, &model.ContestProblem{}, &model.ContestUser{})
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func TestFinalizeExactlyOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	if err := db.Create(&model.Problem{ID: 3, Title: "A+B"}).Error; err != nil {
		t.Fatalf("create problem failed: %v", err)
	}
	repo := NewSubmissionRepository(db)
	sub := model.NewSubmission(1, 3, nil, model.SubmissionLanguageCPP, "int main(){}", time.Now())
	if err := repo.Create(ctx, sub); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first := *sub
	if err := first.Transition(model.Verdict{Status: model.SubmissionStatusAccepted, TimeUsed: 12, MemoryUsed: 4096}); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if err := repo.Finalize(ctx, &first); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	// 另一个进程持有的旧副本
	second := *sub
	_ = second.Transition(model.Verdict{Status: model.SubmissionStatusWrongAnswer})
	if err := repo.Finalize(ctx, &second); !errors.Is(err, model.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}

	got, err := repo.Get(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != model.SubmissionStatusAccepted || got.TimeUsed != 12 || got.MemoryUsed != 4096 {
		t.Fatalf("unexpected stored submission: %+v", got)
	}

	p, err := NewProblemRepository(db).Get(ctx, 3)
	if err != nil {
		t.Fatalf("get problem failed: %v", err)
	}
	if p.SubmitNum != 1 || p.AcceptNum != 1 {
		t.Fatalf("unexpected counters: submit %d accept %d", p.SubmitNum, p.AcceptNum)
	}
}

func TestFinalizeCounters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	_ = db.Create(&model.Problem{ID: 3}).Error
	repo := NewSubmissionRepository(db)

	for _, status := range []model.SubmissionStatus{
		model.SubmissionStatusWrongAnswer,
		model.SubmissionStatusCompileError,
		model.SubmissionStatusSystemError,
		model.SubmissionStatusTimeLimitExceeded,
	} {
		sub := model.NewSubmission(1, 3, nil, model.SubmissionLanguagePython, "print(1)", time.Now())
		if err := repo.Create(ctx, sub); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		_ = sub.Transition(model.Verdict{Status: status, ErrorText: "boom"})
		if err := repo.Finalize(ctx, sub); err != nil {
			t.Fatalf("finalize %s failed: %v", status, err)
		}
	}

	p, _ := NewProblemRepository(db).Get(ctx, 3)
	if p.SubmitNum != 2 || p.AcceptNum != 0 {
		t.Fatalf("unexpected counters: submit %d accept %d", p.SubmitNum, p.AcceptNum)
	}
}

func TestFinalizeMissingSubmission(t *testing.T) {
	t.Parallel()
	repo := NewSubmissionRepository(newTestDB(t))
	sub := &model.Submission{ID: 404, Status: model.SubmissionStatusAccepted}
	if err := repo.Finalize(context.Background(), sub); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Get(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestContestProblemIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewContestRepository(db)
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if err := db.Create(&model.Contest{ID: 1, StartTime: start, EndTime: start.Add(time.Hour)}).Error; err != nil {
		t.Fatalf("create contest failed: %v", err)
	}
	if err := repo.AddProblems(ctx, 1, 30, 10, 20); err != nil {
		t.Fatalf("add problems failed: %v", err)
	}
	_ = repo.AddProblems(ctx, 1, 10)
	_ = repo.AddProblems(ctx, 2, 99)

	ids, err := repo.ProblemIDs(ctx, 1)
	if err != nil {
		t.Fatalf("problem ids failed: %v", err)
	}
	if len(ids) != 3 || ids[0] != 10 || ids[1] != 20 || ids[2] != 30 {
		t.Fatalf("unexpected problem ids: %v", ids)
	}

	c, err := repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get contest failed: %v", err)
	}
	if !c.StartTime.Equal(start) {
		t.Fatalf("unexpected start time: %s", c.StartTime)
	}
	if _, err = repo.Get(ctx, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStandingsRepositoryWithLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	contests := NewContestRepository(db)
	store := NewStandingsRepository(db)
	ledger := standings.NewLedger(loggerv2.GetGlobalLogger(), store, contests)

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	contest := &model.Contest{ID: 1, StartTime: start, EndTime: start.Add(5 * time.Hour)}
	_ = contests.AddProblems(ctx, contest.ID, 1, 2)
	if err := ledger.Register(ctx, contest.ID, 5, 6); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := ledger.Register(ctx, contest.ID, 5); err != nil {
		t.Fatalf("register twice failed: %v", err)
	}

	submit := func(uid, pid uint64, status model.SubmissionStatus, after time.Duration) {
		t.Helper()
		cid := contest.ID
		sub := &model.Submission{UserID: uid, ProblemID: pid, ContestID: &cid, Status: status, SubmitTime: start.Add(after)}
		if err := ledger.Apply(ctx, contest, sub); err != nil {
			t.Fatalf("apply failed: %v", err)
		}
	}
	submit(5, 1, model.SubmissionStatusWrongAnswer, 10*time.Minute)
	submit(5, 1, model.SubmissionStatusAccepted, 20*time.Minute)
	submit(6, 1, model.SubmissionStatusAccepted, 5*time.Minute)
	submit(6, 2, model.SubmissionStatusRuntimeError, 50*time.Minute)

	list, err := ledger.Ranklist(ctx, contest.ID)
	if err != nil {
		t.Fatalf("ranklist failed: %v", err)
	}
	if len(list) != 2 || list[0].UserID != 6 || list[0].Penalty != 5 || list[1].UserID != 5 || list[1].Penalty != 40 {
		t.Fatalf("unexpected ranklist: %+v", list)
	}
	details, err := ledger.ScoreDetails(ctx, contest.ID, 6)
	if err != nil {
		t.Fatalf("score details failed: %v", err)
	}
	if details[2].Attempts != 1 || details[2].Solved() {
		t.Fatalf("unexpected details for problem 2: %+v", details[2])
	}

	if err = ledger.Unregister(ctx, contest.ID, 6); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}
	cid := contest.ID
	err = ledger.Apply(ctx, contest, &model.Submission{UserID: 6, ProblemID: 2, ContestID: &cid, Status: model.SubmissionStatusAccepted, SubmitTime: start})
	if !errors.Is(err, standings.ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	users, _ := ledger.Users(ctx, contest.ID)
	if len(users) != 1 || users[0] != 5 {
		t.Fatalf("unexpected users: %v", users)
	}
}

func TestFinalizeInContestRollsBackOnStandingsFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	_ = db.Create(&model.Problem{ID: 3}).Error
	contests := NewContestRepository(db)
	store := NewStandingsRepository(db)
	ledger := standings.NewLedger(loggerv2.GetGlobalLogger(), store, contests)
	repo := NewSubmissionRepository(db)

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	contest := &model.Contest{ID: 1, StartTime: start, EndTime: start.Add(5 * time.Hour)}
	_ = contests.AddProblems(ctx, contest.ID, 3)
	if err := ledger.Register(ctx, contest.ID, 5); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	cid := contest.ID
	sub := model.NewSubmission(5, 3, &cid, model.SubmissionLanguageCPP, "int main(){}", start.Add(30*time.Minute))
	if err := repo.Create(ctx, sub); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	_ = sub.Transition(model.Verdict{Status: model.SubmissionStatusWrongAnswer})

	dbErr := errors.New("lock wait timeout exceeded")
	err := repo.FinalizeInContest(ctx, sub, func(entry *model.ContestUser) (bool, error) {
		return false, dbErr
	})
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected standings error, got %v", err)
	}
	got, _ := repo.Get(ctx, sub.ID)
	if got.Status != model.SubmissionStatusPending {
		t.Fatalf("submission committed without standings: %+v", got)
	}
	p, _ := NewProblemRepository(db).Get(ctx, 3)
	if p.SubmitNum != 0 {
		t.Fatalf("counters committed without standings: submit %d", p.SubmitNum)
	}

	// 重新投递后整体成功
	err = ledger.ApplyWith(ctx, contest, sub, func(ctx context.Context, fn standings.UpdateFunc) error {
		return repo.FinalizeInContest(ctx, sub, fn)
	})
	if err != nil {
		t.Fatalf("apply with finalize failed: %v", err)
	}
	got, _ = repo.Get(ctx, sub.ID)
	if got.Status != model.SubmissionStatusWrongAnswer {
		t.Fatalf("submission not finalized: %+v", got)
	}
	details, _ := ledger.ScoreDetails(ctx, contest.ID, 5)
	if details[3].Attempts != 1 {
		t.Fatalf("unexpected details for problem 3: %+v", details[3])
	}
	p, _ = NewProblemRepository(db).Get(ctx, 3)
	if p.SubmitNum != 1 {
		t.Fatalf("unexpected counters: submit %d", p.SubmitNum)
	}
}

func TestFinalizeInContestUnregisteredStillFinalizes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	_ = db.Create(&model.Problem{ID: 3}).Error
	repo := NewSubmissionRepository(db)
	ledger := standings.NewLedger(loggerv2.GetGlobalLogger(), NewStandingsRepository(db), NewContestRepository(db))

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	contest := &model.Contest{ID: 1, StartTime: start, EndTime: start.Add(time.Hour)}
	cid := contest.ID
	sub := model.NewSubmission(42, 3, &cid, model.SubmissionLanguageCPP, "int main(){}", start.Add(time.Minute))
	_ = repo.Create(ctx, sub)
	_ = sub.Transition(model.Verdict{Status: model.SubmissionStatusAccepted})

	err := ledger.ApplyWith(ctx, contest, sub, func(ctx context.Context, fn standings.UpdateFunc) error {
		return repo.FinalizeInContest(ctx, sub, fn)
	})
	if !errors.Is(err, standings.ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	got, _ := repo.Get(ctx, sub.ID)
	if got.Status != model.SubmissionStatusAccepted {
		t.Fatalf("submission should be finalized: %+v", got)
	}
}
