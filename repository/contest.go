package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/to404hanga/online_judge_pipeline/model"
	"github.com/to404hanga/online_judge_pipeline/standings"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProblemRepository struct {
	db *gorm.DB
}

func NewProblemRepository(db *gorm.DB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

func (r *ProblemRepository) Get(ctx context.Context, id uint64) (*model.Problem, error) {
	var p model.Problem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("problem %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get problem: %w", err)
	}
	return &p, nil
}

type ContestRepository struct {
	db *gorm.DB
}

var _ standings.ProblemSource = (*ContestRepository)(nil)

func NewContestRepository(db *gorm.DB) *ContestRepository {
	return &ContestRepository{db: db}
}

func (r *ContestRepository) Get(ctx context.Context, id uint64) (*model.Contest, error) {
	var c model.Contest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("contest %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	return &c, nil
}

// ProblemIDs returns the problem set of a contest ordered by problem id.
func (r *ContestRepository) ProblemIDs(ctx context.Context, contestID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&model.ContestProblem{}).
		Where("contest_id = ?", contestID).
		Order("problem_id").
		Pluck("problem_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get contest problems: %w", err)
	}
	return ids, nil
}

func (r *ContestRepository) AddProblems(ctx context.Context, contestID uint64, problemIDs ...uint64) error {
	if len(problemIDs) == 0 {
		return nil
	}
	rows := make([]model.ContestProblem, 0, len(problemIDs))
	for _, pid := range problemIDs {
		rows = append(rows, model.ContestProblem{ContestID: contestID, ProblemID: pid})
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to add contest problems: %w", err)
	}
	return nil
}
