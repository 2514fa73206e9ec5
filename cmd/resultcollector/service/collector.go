package service

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/gogo/protobuf/proto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/to404hanga/online_judge_pipeline/constants"
	"github.com/to404hanga/online_judge_pipeline/consumer"
	"github.com/to404hanga/online_judge_pipeline/message"
	"github.com/to404hanga/online_judge_pipeline/model"
	"github.com/to404hanga/online_judge_pipeline/standings"
	"github.com/to404hanga/pkg404/gotools/retry"
	"github.com/to404hanga/pkg404/logger"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

const (
	ResultCollectorGroupID = "result_collector_group"
)

var (
	resultCollectorHandleInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "online_judge",
		Subsystem: "resultcollector",
		Name:      "handle_result_in_flight",
		Help:      "Current number of in-flight handleResult operations.",
	})

	resultCollectorHandleTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "online_judge",
		Subsystem: "resultcollector",
		Name:      "handle_result_total",
		Help:      "Total number of handleResult operations.",
	}, []string{"result", "reason"})

	resultCollectorHandleDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "online_judge",
		Subsystem: "resultcollector",
		Name:      "handle_result_duration_seconds",
		Help:      "Duration of handleResult operations in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 16),
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		resultCollectorHandleInFlight,
		resultCollectorHandleTotal,
		resultCollectorHandleDurationSeconds,
	)
}

// RanklistRefresher rebuilds the cached ranklist of a contest.
type RanklistRefresher interface {
	Refresh(ctx context.Context, contestID uint64) error
}

type ledgerRefresher struct {
	cache  *standings.RankCache
	ledger *standings.Ledger
}

func (r *ledgerRefresher) Refresh(ctx context.Context, contestID uint64) error {
	_, err := r.cache.Refresh(ctx, r.ledger, contestID)
	return err
}

type ResultCollectorService struct {
	log       loggerv2.Logger
	consumer  consumer.Consumer
	refresher RanklistRefresher
}

func NewResultCollectorService(log loggerv2.Logger, cg sarama.ConsumerGroup, cache *standings.RankCache, ledger *standings.Ledger) *ResultCollectorService {
	s := newResultCollectorService(log, &ledgerRefresher{cache: cache, ledger: ledger})
	handler := consumer.NewGroupHandler(s.handleResult, log)
	s.consumer = consumer.NewSaramaConsumer(cg, constants.JudgeResultTopic, handler, log)
	return s
}

func newResultCollectorService(log loggerv2.Logger, refresher RanklistRefresher) *ResultCollectorService {
	return &ResultCollectorService{
		log:       log,
		refresher: refresher,
	}
}

func (s *ResultCollectorService) Start(ctx context.Context) error {
	return s.consumer.Start(ctx)
}

func (s *ResultCollectorService) handleResult(ctx context.Context, msg *sarama.ConsumerMessage) (err error) {
	var res message.JudgeResult
	if err = proto.Unmarshal(msg.Value, &res); err != nil {
		resultCollectorHandleTotal.WithLabelValues("error", "unmarshal_judge_result").Inc()
		s.log.ErrorContext(ctx, "failed to unmarshal judge result", logger.Error(err))
		return fmt.Errorf("failed to unmarshal judge result: %w", err)
	}
	return s.collect(ctx, &res)
}

func (s *ResultCollectorService) collect(ctx context.Context, res *message.JudgeResult) (err error) {
	opStartTime := time.Now()
	result := "success"
	reason := "ok"

	resultCollectorHandleInFlight.Inc()
	defer func() {
		resultCollectorHandleInFlight.Dec()
		resultCollectorHandleTotal.WithLabelValues(result, reason).Inc()
		resultCollectorHandleDurationSeconds.WithLabelValues(result).Observe(time.Since(opStartTime).Seconds())
	}()

	ctx = loggerv2.ContextWithFields(ctx,
		logger.String("RequestID", res.RequestId),
		logger.Uint64("submission_id", res.SubmissionId))

	// 练习提交以及编译错误/系统错误不影响榜单
	if res.ContestId == 0 || !model.SubmissionStatus(res.Status).IsGraded() {
		reason = "skip"
		return nil
	}

	collectorCtx := loggerv2.ContextWithFields(ctx, logger.Uint64("contest_id", res.ContestId))
	err = retry.Do(collectorCtx, func() error {
		errInternal := s.refresher.Refresh(collectorCtx, res.ContestId)
		if errInternal != nil {
			s.log.ErrorContext(collectorCtx, "failed to refresh ranklist", logger.Error(errInternal))
			return fmt.Errorf("failed to refresh ranklist: %w", errInternal)
		}
		return nil
	}, retry.WithBaseInterval(time.Second))
	if err != nil {
		result = "error"
		reason = "refresh_ranklist"
		s.log.ErrorContext(ctx, "failed to refresh ranklist", logger.Error(err))
		return err
	}
	return nil
}
