package model

// ProblemScore is the solve state of one problem for one contestant.
// A nil SolveMinutes means the problem has not been solved yet; once set it
// is never changed again.
type ProblemScore struct {
	SolveMinutes *int64 `json:"solve_time,omitempty"` // 距比赛开始的分钟数
	Attempts     uint32 `json:"attempts"`             // 通过前的错误次数
}

func (p *ProblemScore) Solved() bool {
	return p != nil && p.SolveMinutes != nil
}

// ScoreDetails maps problem id to its solve state.
type ScoreDetails map[uint64]*ProblemScore

// Problem returns the sub-entry for problemID, creating it when absent.
func (d ScoreDetails) Problem(problemID uint64) *ProblemScore {
	ps, ok := d[problemID]
	if !ok || ps == nil {
		ps = &ProblemScore{}
		d[problemID] = ps
	}
	return ps
}

func (d ScoreDetails) Clone() ScoreDetails {
	out := make(ScoreDetails, len(d))
	for pid, ps := range d {
		if ps == nil {
			continue
		}
		cp := &ProblemScore{Attempts: ps.Attempts}
		if ps.SolveMinutes != nil {
			m := *ps.SolveMinutes
			cp.SolveMinutes = &m
		}
		out[pid] = cp
	}
	return out
}

// ContestUser is the standings entry of one user in one contest.
type ContestUser struct {
	ID           uint64       `gorm:"primaryKey"`
	ContestID    uint64       `gorm:"uniqueIndex:idx_contest_user"`
	UserID       uint64       `gorm:"uniqueIndex:idx_contest_user"`
	ScoreDetails ScoreDetails `gorm:"type:text;serializer:json"`
}

func NewContestUser(contestID, userID uint64) *ContestUser {
	return &ContestUser{
		ContestID:    contestID,
		UserID:       userID,
		ScoreDetails: ScoreDetails{},
	}
}

func (cu *ContestUser) Clone() ContestUser {
	return ContestUser{
		ID:           cu.ID,
		ContestID:    cu.ContestID,
		UserID:       cu.UserID,
		ScoreDetails: cu.ScoreDetails.Clone(),
	}
}
