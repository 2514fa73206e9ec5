package message

import (
	"time"

	"github.com/to404hanga/online_judge_pipeline/model"
)

func NewJudgeTask(requestID string, sub *model.Submission, problem *model.Problem) *JudgeTask {
	task := &JudgeTask{
		RequestId:           requestID,
		SubmissionId:        sub.ID,
		ProblemId:           sub.ProblemID,
		UserId:              sub.UserID,
		Language:            sub.Language.String(),
		Code:                sub.Code,
		SubmitTimeUnixMilli: sub.SubmitTime.UnixMilli(),
	}
	if sub.ContestID != nil {
		task.ContestId = *sub.ContestID
	}
	if problem != nil {
		task.TimeLimit = int32(problem.TimeLimit)
		task.MemoryLimit = int32(problem.MemoryLimit)
	}
	return task
}

// Submission rebuilds the pending submission described by the task.
func (m *JudgeTask) Submission() *model.Submission {
	sub := &model.Submission{
		ID:         m.SubmissionId,
		Code:       m.Code,
		Language:   model.SubmissionLanguage(m.Language),
		UserID:     m.UserId,
		ProblemID:  m.ProblemId,
		SubmitTime: time.UnixMilli(m.SubmitTimeUnixMilli).UTC(),
		Status:     model.SubmissionStatusPending,
	}
	if m.ContestId != 0 {
		cid := m.ContestId
		sub.ContestID = &cid
	}
	return sub
}

func NewJudgeResult(requestID string, sub *model.Submission) *JudgeResult {
	res := &JudgeResult{
		RequestId:    requestID,
		SubmissionId: sub.ID,
		ProblemId:    sub.ProblemID,
		UserId:       sub.UserID,
		Status:       sub.Status.String(),
		TimeUsed:     sub.TimeUsed,
		MemoryUsed:   sub.MemoryUsed,
		ErrorText:    sub.ErrorText,
	}
	if sub.ContestID != nil {
		res.ContestId = *sub.ContestID
	}
	return res
}
