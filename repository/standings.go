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

// StandingsRepository stores standings entries in the contest_user table.
type StandingsRepository struct {
	db *gorm.DB
}

var _ standings.Store = (*StandingsRepository)(nil)

func NewStandingsRepository(db *gorm.DB) *StandingsRepository {
	return &StandingsRepository{db: db}
}

func (r *StandingsRepository) Register(ctx context.Context, contestID uint64, userIDs ...uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]*model.ContestUser, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, model.NewContestUser(contestID, uid))
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "contest_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to register contest users: %w", err)
	}
	return nil
}

func (r *StandingsRepository) Unregister(ctx context.Context, contestID uint64, userIDs ...uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Where("user_id IN ?", userIDs).
		Delete(&model.ContestUser{}).Error
	if err != nil {
		return fmt.Errorf("failed to unregister contest users: %w", err)
	}
	return nil
}

func (r *StandingsRepository) Update(ctx context.Context, contestID, userID uint64, fn standings.UpdateFunc) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return updateEntryTx(tx, contestID, userID, fn)
	})
}

// updateEntryTx locks the entry row for the rest of tx and saves it when fn
// reports a change.
func updateEntryTx(tx *gorm.DB, contestID, userID uint64, fn standings.UpdateFunc) error {
	var entry model.ContestUser
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("contest_id = ?", contestID).
		Where("user_id = ?", userID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return standings.ErrNotRegistered
	}
	if err != nil {
		return fmt.Errorf("failed to lock contest user: %w", err)
	}

	changed, err := fn(&entry)
	if err != nil || !changed {
		return err
	}
	if err = tx.Save(&entry).Error; err != nil {
		return fmt.Errorf("failed to save contest user: %w", err)
	}
	return nil
}

func (r *StandingsRepository) Get(ctx context.Context, contestID, userID uint64) (*model.ContestUser, error) {
	var entry model.ContestUser
	err := r.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Where("user_id = ?", userID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, standings.ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contest user: %w", err)
	}
	return &entry, nil
}

func (r *StandingsRepository) List(ctx context.Context, contestID uint64) ([]model.ContestUser, error) {
	var entries []model.ContestUser
	err := r.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Order("user_id").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contest users: %w", err)
	}
	return entries, nil
}
