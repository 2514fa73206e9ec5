package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gogo/protobuf/proto"
	"github.com/redis/go-redis/v9"
	"github.com/to404hanga/online_judge_pipeline/constants"
	"github.com/to404hanga/online_judge_pipeline/event"
	"github.com/to404hanga/online_judge_pipeline/message"
	"github.com/to404hanga/online_judge_pipeline/model"
	ojservice "github.com/to404hanga/online_judge_pipeline/service"
	"github.com/to404hanga/pkg404/gotools/retry"
	"github.com/to404hanga/pkg404/logger"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

const (
	groupName    = constants.JudgeTaskGroup
	reclaimEvery = time.Minute
)

type Judger interface {
	Judge(ctx context.Context, sub *model.Submission) error
}

type JudgeService struct {
	log           loggerv2.Logger
	rdb           redis.Cmdable
	pool          *ojservice.Pool
	judger        Judger
	producer      event.Producer
	consumerName  string
	batchSize     int64
	autoClaimIdle time.Duration
}

func NewJudgeService(log loggerv2.Logger, rdb redis.Cmdable, pool *ojservice.Pool, judger Judger, producer event.Producer, batchSize int, autoClaimIdle time.Duration) *JudgeService {
	hostname, err := os.Hostname()
	if err != nil {
		log.Error("failed to get hostname", logger.Error(err))
		panic(err)
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &JudgeService{
		log:           log,
		rdb:           rdb,
		pool:          pool,
		judger:        judger,
		producer:      producer,
		consumerName:  fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano()),
		batchSize:     int64(batchSize),
		autoClaimIdle: autoClaimIdle,
	}
}

func (s *JudgeService) Start(ctx context.Context) error {
	s.log.InfoContext(ctx, "Starting judger service",
		logger.String("group", groupName),
		logger.String("consumer", s.consumerName))

	err := s.rdb.XGroupCreateMkStream(ctx, constants.JudgeTaskKey, groupName, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	go s.pool.Run(ctx)

	var lastClaim time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if s.autoClaimIdle > 0 && time.Since(lastClaim) >= reclaimEvery {
			lastClaim = time.Now()
			s.reclaim(ctx)
		}

		streamMsg, err := s.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    groupName,
			Consumer: s.consumerName,
			Streams:  []string{constants.JudgeTaskKey, ">"}, // > 表示只接收新消息
			Count:    s.batchSize,
			Block:    time.Second, // 阻塞 1 秒
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			s.log.ErrorContext(ctx, "failed to read stream message", logger.Error(err))
			time.Sleep(100 * time.Millisecond) // 出错稍作等待
			continue
		}

		for _, stream := range streamMsg {
			for _, msg := range stream.Messages {
				s.dispatch(ctx, msg)
			}
		}
	}
}

// reclaim takes over tasks that another consumer read but never acked.
func (s *JudgeService) reclaim(ctx context.Context) {
	start := "0-0"
	for {
		msgs, next, err := s.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   constants.JudgeTaskKey,
			Group:    groupName,
			MinIdle:  s.autoClaimIdle,
			Start:    start,
			Count:    s.batchSize,
			Consumer: s.consumerName,
		}).Result()
		if err != nil {
			s.log.ErrorContext(ctx, "failed to auto claim pending tasks", logger.Error(err))
			return
		}
		for _, msg := range msgs {
			s.log.InfoContext(ctx, "Reclaimed message", logger.String("id", msg.ID))
			s.dispatch(ctx, msg)
		}
		if next == "0-0" || len(msgs) == 0 {
			return
		}
		start = next
	}
}

func (s *JudgeService) dispatch(ctx context.Context, msg redis.XMessage) {
	s.log.InfoContext(ctx, "Received message", logger.String("id", msg.ID))
	err := s.pool.Submit(ctx, func(taskCtx context.Context) {
		if err := s.processMessage(taskCtx, msg); err != nil {
			s.log.ErrorContext(taskCtx, "failed to process message", logger.String("id", msg.ID), logger.Error(err))
		}
	})
	if err != nil {
		// 未 ack 的消息会被 reclaim 重新认领
		s.log.WarnContext(ctx, "failed to submit task to pool", logger.String("id", msg.ID), logger.Error(err))
	}
}

func (s *JudgeService) processMessage(ctx context.Context, msg redis.XMessage) error {
	taskData, ok := msg.Values["task"].(string)
	if !ok {
		s.ack(ctx, msg.ID)
		return fmt.Errorf("task field is not a string")
	}

	var task message.JudgeTask
	if err := proto.Unmarshal([]byte(taskData), &task); err != nil {
		s.ack(ctx, msg.ID)
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}
	ctx = loggerv2.ContextWithFields(ctx, logger.String("RequestID", task.RequestId))

	sub := task.Submission()
	judgeErr := s.judger.Judge(ctx, sub)
	if errors.Is(judgeErr, model.ErrInvalidStateTransition) {
		// 重复评测, 结果已由其他 worker 发布
		s.ack(ctx, msg.ID)
		return judgeErr
	}
	if !sub.Status.IsTerminal() {
		// 持久化失败, 保留在 pending 列表中等待重新认领
		return fmt.Errorf("submission still pending: %w", judgeErr)
	}

	if err := s.publish(ctx, &task, sub); err != nil {
		s.log.ErrorContext(ctx, "failed to publish judge result", logger.Error(err))
	}
	s.ack(ctx, msg.ID)
	return judgeErr
}

func (s *JudgeService) publish(ctx context.Context, task *message.JudgeTask, sub *model.Submission) error {
	res := message.NewJudgeResult(task.RequestId, sub)
	return retry.Do(ctx, func() error {
		return event.ProduceProto(ctx, s.producer, constants.JudgeResultTopic, strconv.FormatUint(sub.ID, 10), res)
	}, retry.WithBaseInterval(time.Second))
}

func (s *JudgeService) ack(ctx context.Context, id string) {
	err := retry.Do(ctx, func() error {
		return s.rdb.XAck(ctx, constants.JudgeTaskKey, groupName, id).Err()
	}, retry.WithBaseInterval(time.Second))
	if err != nil {
		s.log.ErrorContext(ctx, "failed to ack message", logger.String("id", id), logger.Error(err))
		return
	}
	s.log.InfoContext(ctx, "Acked message", logger.String("id", id))
}
