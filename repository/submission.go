package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/to404hanga/online_judge_pipeline/model"
	"github.com/to404hanga/online_judge_pipeline/standings"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type SubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) Get(ctx context.Context, id uint64) (*model.Submission, error) {
	var sub model.Submission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("submission %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &sub, nil
}

// Finalize persists a submission that has already been transitioned in memory.
// The row is only written while it is still pending, so concurrent finalizers
// of the same submission see exactly one success. Problem counters are bumped
// in the same transaction for graded results.
func (r *SubmissionRepository) Finalize(ctx context.Context, sub *model.Submission) error {
	if !sub.Status.IsTerminal() {
		return fmt.Errorf("%w: submission %d is %s", model.ErrInvalidStateTransition, sub.ID, sub.Status)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return finalizeTx(tx, sub)
	})
}

// FinalizeInContest is Finalize plus the update of the submitter's standings
// entry, committed in one transaction. Any standings failure rolls the
// submission back to pending, except a missing entry: the submission is
// still committed and standings.ErrNotRegistered is returned.
func (r *SubmissionRepository) FinalizeInContest(ctx context.Context, sub *model.Submission, fn standings.UpdateFunc) error {
	if !sub.Status.IsTerminal() {
		return fmt.Errorf("%w: submission %d is %s", model.ErrInvalidStateTransition, sub.ID, sub.Status)
	}
	if sub.ContestID == nil {
		return fmt.Errorf("submission %d has no contest", sub.ID)
	}
	var notRegistered error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := finalizeTx(tx, sub); err != nil {
			return err
		}
		if fn == nil {
			return nil
		}
		err := updateEntryTx(tx, *sub.ContestID, sub.UserID, fn)
		if errors.Is(err, standings.ErrNotRegistered) {
			// 数据不一致, 提交结果仍然落库
			notRegistered = err
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return notRegistered
}

func finalizeTx(tx *gorm.DB, sub *model.Submission) error {
	res := tx.Model(&model.Submission{}).
		Where("id = ?", sub.ID).
		Where("status = ?", model.SubmissionStatusPending).
		Updates(map[string]any{
			"status":      sub.Status,
			"time_used":   sub.TimeUsed,
			"memory_used": sub.MemoryUsed,
			"error_text":  sub.ErrorText,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update submission: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var cnt int64
		if err := tx.Model(&model.Submission{}).Where("id = ?", sub.ID).Count(&cnt).Error; err != nil {
			return fmt.Errorf("failed to count submission: %w", err)
		}
		if cnt == 0 {
			return fmt.Errorf("submission %d: %w", sub.ID, ErrNotFound)
		}
		return fmt.Errorf("%w: submission %d is no longer pending", model.ErrInvalidStateTransition, sub.ID)
	}

	if !sub.Status.IsGraded() {
		return nil
	}
	updates := map[string]any{
		"submit_num": gorm.Expr("submit_num + ?", 1),
	}
	if sub.Status == model.SubmissionStatusAccepted {
		updates["accept_num"] = gorm.Expr("accept_num + ?", 1)
	}
	if err := tx.Model(&model.Problem{}).Where("id = ?", sub.ProblemID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update problem counters: %w", err)
	}
	return nil
}
