package model

import "time"

type Problem struct {
	ID          uint64 `gorm:"primaryKey"`
	Title       string `gorm:"type:varchar(80);index"`
	TimeLimit   int    // 毫秒
	MemoryLimit int    // MB
	SubmitNum   int64
	AcceptNum   int64
}

type Contest struct {
	ID        uint64 `gorm:"primaryKey"`
	Title     string `gorm:"type:varchar(80)"`
	StartTime time.Time
	EndTime   time.Time
	HolderID  uint64 `gorm:"index"`
}

// Accepts reports whether a submission made at t may affect the standings,
// that is t is at or before the contest end.
func (c *Contest) Accepts(t time.Time) bool {
	return !t.After(c.EndTime)
}

// ContestProblem 比赛题目集合
type ContestProblem struct {
	ContestID uint64 `gorm:"primaryKey"`
	ProblemID uint64 `gorm:"primaryKey"`
}
