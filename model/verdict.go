package model

// Verdict is the parsed outcome of one judger run.
type Verdict struct {
	Status     SubmissionStatus
	TimeUsed   int64  // 毫秒
	MemoryUsed int64  // 字节
	ErrorText  string // 仅 CompileError / SystemError 时非空
}

func SystemErrorVerdict(msg string) Verdict {
	return Verdict{
		Status:    SubmissionStatusSystemError,
		ErrorText: msg,
	}
}
