package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidStateTransition = errors.New("invalid submission state transition")

type Submission struct {
	ID         uint64             `gorm:"primaryKey"`
	Code       string             `gorm:"type:text"`
	Language   SubmissionLanguage `gorm:"type:varchar(16)"`
	UserID     uint64             `gorm:"index"`
	ProblemID  uint64             `gorm:"index"`
	ContestID  *uint64            `gorm:"index"` // nil 表示练习提交
	SubmitTime time.Time
	Status     SubmissionStatus `gorm:"type:varchar(32);index"`
	TimeUsed   int64            // 毫秒
	MemoryUsed int64            // 字节
	ErrorText  string           `gorm:"type:text"`
}

func NewSubmission(userID, problemID uint64, contestID *uint64, language SubmissionLanguage, code string, submitTime time.Time) *Submission {
	return &Submission{
		Code:       code,
		Language:   language,
		UserID:     userID,
		ProblemID:  problemID,
		ContestID:  contestID,
		SubmitTime: submitTime.UTC(),
		Status:     SubmissionStatusPending,
	}
}

func (s *Submission) InContest() bool {
	return s.ContestID != nil
}

// Transition finalizes a pending submission with v. It succeeds at most once;
// any later call returns ErrInvalidStateTransition and leaves s untouched.
func (s *Submission) Transition(v Verdict) error {
	if s.Status != SubmissionStatusPending {
		return fmt.Errorf("%w: submission %d is already %s", ErrInvalidStateTransition, s.ID, s.Status)
	}
	if !v.Status.IsTerminal() {
		return fmt.Errorf("%w: %q is not a terminal status", ErrInvalidStateTransition, v.Status)
	}

	s.Status = v.Status
	if v.Status.IsInfraError() {
		s.TimeUsed = 0
		s.MemoryUsed = 0
		s.ErrorText = v.ErrorText
		return nil
	}
	s.TimeUsed = max(v.TimeUsed, 0)
	s.MemoryUsed = max(v.MemoryUsed, 0)
	s.ErrorText = ""
	return nil
}
