// Package message holds the protobuf messages exchanged over kafka and the
// judge task stream.
package message

import (
	"github.com/gogo/protobuf/proto"
)

// SubmissionEvent is published on the submission topic after a submission
// has been stored as pending.
type SubmissionEvent struct {
	RequestId    string `protobuf:"bytes,1,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
	SubmissionId uint64 `protobuf:"varint,2,opt,name=submission_id,json=submissionId,proto3" json:"submission_id,omitempty"`
}

func (m *SubmissionEvent) Reset()         { *m = SubmissionEvent{} }
func (m *SubmissionEvent) String() string { return proto.CompactTextString(m) }
func (*SubmissionEvent) ProtoMessage()    {}

// JudgeTask carries everything a worker needs to judge a submission without
// reading the database. ContestId 0 means a practice submission.
type JudgeTask struct {
	RequestId           string `protobuf:"bytes,1,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
	SubmissionId        uint64 `protobuf:"varint,2,opt,name=submission_id,json=submissionId,proto3" json:"submission_id,omitempty"`
	ProblemId           uint64 `protobuf:"varint,3,opt,name=problem_id,json=problemId,proto3" json:"problem_id,omitempty"`
	ContestId           uint64 `protobuf:"varint,4,opt,name=contest_id,json=contestId,proto3" json:"contest_id,omitempty"`
	UserId              uint64 `protobuf:"varint,5,opt,name=user_id,json=userId,proto3" json:"user_id,omitempty"`
	Language            string `protobuf:"bytes,6,opt,name=language,proto3" json:"language,omitempty"`
	Code                string `protobuf:"bytes,7,opt,name=code,proto3" json:"code,omitempty"`
	SubmitTimeUnixMilli int64  `protobuf:"varint,8,opt,name=submit_time_unix_milli,json=submitTimeUnixMilli,proto3" json:"submit_time_unix_milli,omitempty"`
	TimeLimit           int32  `protobuf:"varint,9,opt,name=time_limit,json=timeLimit,proto3" json:"time_limit,omitempty"`
	MemoryLimit         int32  `protobuf:"varint,10,opt,name=memory_limit,json=memoryLimit,proto3" json:"memory_limit,omitempty"`
}

func (m *JudgeTask) Reset()         { *m = JudgeTask{} }
func (m *JudgeTask) String() string { return proto.CompactTextString(m) }
func (*JudgeTask) ProtoMessage()    {}

// JudgeResult is published on the judge_result topic once a submission has
// been finalized.
type JudgeResult struct {
	RequestId    string `protobuf:"bytes,1,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
	SubmissionId uint64 `protobuf:"varint,2,opt,name=submission_id,json=submissionId,proto3" json:"submission_id,omitempty"`
	ProblemId    uint64 `protobuf:"varint,3,opt,name=problem_id,json=problemId,proto3" json:"problem_id,omitempty"`
	ContestId    uint64 `protobuf:"varint,4,opt,name=contest_id,json=contestId,proto3" json:"contest_id,omitempty"`
	UserId       uint64 `protobuf:"varint,5,opt,name=user_id,json=userId,proto3" json:"user_id,omitempty"`
	Status       string `protobuf:"bytes,6,opt,name=status,proto3" json:"status,omitempty"`
	TimeUsed     int64  `protobuf:"varint,7,opt,name=time_used,json=timeUsed,proto3" json:"time_used,omitempty"`
	MemoryUsed   int64  `protobuf:"varint,8,opt,name=memory_used,json=memoryUsed,proto3" json:"memory_used,omitempty"`
	ErrorText    string `protobuf:"bytes,9,opt,name=error_text,json=errorText,proto3" json:"error_text,omitempty"`
}

func (m *JudgeResult) Reset()         { *m = JudgeResult{} }
func (m *JudgeResult) String() string { return proto.CompactTextString(m) }
func (*JudgeResult) ProtoMessage()    {}
