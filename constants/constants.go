package constants

const (
	JudgeTaskKey     = "judge:task"
	JudgeTaskGroup   = "judger_group"
	SubmissionTopic  = "submission"
	JudgeResultTopic = "judge_result"
)
