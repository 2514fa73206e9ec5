package model

type SubmissionStatus string

const (
	SubmissionStatusPending               SubmissionStatus = "Pending"               // 等待评测
	SubmissionStatusAccepted              SubmissionStatus = "Accepted"              // 通过
	SubmissionStatusWrongAnswer           SubmissionStatus = "WrongAnswer"           // 答案错误
	SubmissionStatusTimeLimitExceeded     SubmissionStatus = "TimeLimitExceeded"     // 超时
	SubmissionStatusIdlenessLimitExceeded SubmissionStatus = "IdlenessLimitExceeded" // 空闲超时
	SubmissionStatusRuntimeError          SubmissionStatus = "RuntimeError"          // 运行时错误
	SubmissionStatusSystemError           SubmissionStatus = "SystemError"           // 系统错误
	SubmissionStatusCompileError          SubmissionStatus = "CompileError"          // 编译错误
)

// TerminalStatuses lists every status a submission may end in.
var TerminalStatuses = []SubmissionStatus{
	SubmissionStatusAccepted,
	SubmissionStatusWrongAnswer,
	SubmissionStatusTimeLimitExceeded,
	SubmissionStatusIdlenessLimitExceeded,
	SubmissionStatusRuntimeError,
	SubmissionStatusSystemError,
	SubmissionStatusCompileError,
}

func (s SubmissionStatus) String() string {
	return string(s)
}

func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case SubmissionStatusAccepted,
		SubmissionStatusWrongAnswer,
		SubmissionStatusTimeLimitExceeded,
		SubmissionStatusIdlenessLimitExceeded,
		SubmissionStatusRuntimeError,
		SubmissionStatusSystemError,
		SubmissionStatusCompileError:
		return true
	}
	return false
}

// IsGraded reports whether the status counts as an attempt on the problem.
// Compile and system errors never do.
func (s SubmissionStatus) IsGraded() bool {
	return s.IsTerminal() && !s.IsInfraError()
}

func (s SubmissionStatus) IsInfraError() bool {
	return s == SubmissionStatusCompileError || s == SubmissionStatusSystemError
}
