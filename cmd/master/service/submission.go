package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/gogo/protobuf/proto"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/to404hanga/online_judge_pipeline/constants"
	"github.com/to404hanga/online_judge_pipeline/consumer"
	"github.com/to404hanga/online_judge_pipeline/message"
	"github.com/to404hanga/online_judge_pipeline/model"
	"github.com/to404hanga/online_judge_pipeline/repository"
	"github.com/to404hanga/pkg404/cachex/lru"
	"github.com/to404hanga/pkg404/logger"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

const (
	JudgerMasterSubmissionGroupID = "judger_master_group"

	problemKey = "problem:%d"
)

type SubmissionGetter interface {
	Get(ctx context.Context, id uint64) (*model.Submission, error)
}

type ProblemGetter interface {
	Get(ctx context.Context, id uint64) (*model.Problem, error)
}

// SubmissionService turns submission events into judge tasks on the redis stream.
type SubmissionService struct {
	log         loggerv2.Logger
	consumer    consumer.Consumer
	rdb         redis.Cmdable
	submissions SubmissionGetter
	problems    ProblemGetter
	lru         *lru.Cache
}

var (
	_ consumer.Consumer = (*SubmissionService)(nil)
)

func NewSubmissionService(log loggerv2.Logger, cg sarama.ConsumerGroup, rdb redis.Cmdable, submissions *repository.SubmissionRepository, problems *repository.ProblemRepository, lru *lru.Cache) *SubmissionService {
	s := newSubmissionService(log, rdb, submissions, problems, lru)
	handler := consumer.NewGroupHandler(s.handleSubmission, log)
	s.consumer = consumer.NewSaramaConsumer(cg, constants.SubmissionTopic, handler, log)
	return s
}

func newSubmissionService(log loggerv2.Logger, rdb redis.Cmdable, submissions SubmissionGetter, problems ProblemGetter, lru *lru.Cache) *SubmissionService {
	return &SubmissionService{
		log:         log,
		rdb:         rdb,
		submissions: submissions,
		problems:    problems,
		lru:         lru,
	}
}

func (s *SubmissionService) Start(ctx context.Context) error {
	return s.consumer.Start(ctx)
}

func (s *SubmissionService) handleSubmission(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event message.SubmissionEvent
	if err := proto.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal submission: %w", err)
	}
	return s.dispatch(ctx, &event)
}

func (s *SubmissionService) dispatch(ctx context.Context, event *message.SubmissionEvent) error {
	if event.RequestId == "" {
		event.RequestId = uuid.NewString()
	}
	ctx = loggerv2.ContextWithFields(ctx,
		logger.String("RequestID", event.RequestId),
		logger.Uint64("submission_id", event.SubmissionId))

	submission, err := s.submissions.Get(ctx, event.SubmissionId)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.WarnContext(ctx, "submission not found, event dropped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}
	if submission.Status != model.SubmissionStatusPending {
		// 重复投递的事件, 提交已经评测完成
		s.log.InfoContext(ctx, "submission already finalized, event dropped", logger.String("status", submission.Status.String()))
		return nil
	}

	var problem model.Problem
	lruKey := fmt.Sprintf(problemKey, submission.ProblemID)
	if problemAny, ok := s.lru.Get(lruKey); ok {
		problem = problemAny.(model.Problem)
	} else {
		p, err := s.problems.Get(ctx, submission.ProblemID)
		if err != nil {
			return fmt.Errorf("failed to get problem: %w", err)
		}
		problem = *p
		s.lru.Add(lruKey, problem)
	}

	task := message.NewJudgeTask(event.RequestId, submission, &problem)
	taskBytes, err := proto.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal judge task: %w", err)
	}

	err = s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: constants.JudgeTaskKey,
		Values: map[string]any{
			"task": taskBytes,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add judge task to stream: %w", err)
	}
	s.log.InfoContext(ctx, "judge task dispatched")
	return nil
}
