package service

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/to404hanga/online_judge_pipeline/executor"
	"github.com/to404hanga/online_judge_pipeline/model"
	"github.com/to404hanga/online_judge_pipeline/verdict"
	"github.com/to404hanga/pkg404/logger"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

var (
	judgeInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "online_judge",
		Subsystem: "pipeline",
		Name:      "judge_in_flight",
		Help:      "Current number of submissions being judged.",
	})

	judgeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "online_judge",
		Subsystem: "pipeline",
		Name:      "judge_total",
		Help:      "Total number of judged submissions.",
	}, []string{"status", "reason"})

	judgeDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "online_judge",
		Subsystem: "pipeline",
		Name:      "judge_duration_seconds",
		Help:      "Duration of judging one submission in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(
		judgeInFlight,
		judgeTotal,
		judgeDurationSeconds,
	)
}

// Orchestrator judges one pending submission from start to finish.
type Orchestrator struct {
	log       loggerv2.Logger
	invoker   executor.Invoker
	finalizer *Finalizer
}

func NewOrchestrator(log loggerv2.Logger, invoker executor.Invoker, finalizer *Finalizer) *Orchestrator {
	return &Orchestrator{
		log:       log,
		invoker:   invoker,
		finalizer: finalizer,
	}
}

// Judge runs the judger on sub, parses its output and finalizes the
// submission. Judger failures end as SystemError and are not returned; only
// duplicate finalization, standings integrity faults and persistence failures
// are.
func (o *Orchestrator) Judge(ctx context.Context, sub *model.Submission) (err error) {
	ctx = loggerv2.ContextWithFields(ctx,
		logger.Uint64("submission_id", sub.ID),
		logger.Uint64("problem_id", sub.ProblemID),
		logger.Uint64("user_id", sub.UserID))

	opStartTime := time.Now()
	status := model.SubmissionStatusSystemError
	reason := "ok"
	judgeInFlight.Inc()
	defer func() {
		judgeInFlight.Dec()
		if err != nil {
			reason = "finalize"
		}
		judgeTotal.WithLabelValues(status.String(), reason).Inc()
		judgeDurationSeconds.WithLabelValues(status.String()).Observe(time.Since(opStartTime).Seconds())
	}()

	var v model.Verdict
	output, err := o.invoker.Invoke(ctx, sub.Language, sub.Code, sub.ProblemID)
	if err != nil {
		reason = invokeFailureReason(err)
		o.log.ErrorContext(ctx, "invoke judger failed", logger.Error(err))
		v = model.SystemErrorVerdict(err.Error())
	} else {
		v, err = verdict.Parse(output)
		if err != nil {
			reason = "malformed_verdict"
			o.log.WarnContext(ctx, "judger output is malformed", logger.Error(err))
		}
	}
	status = v.Status

	if err = o.finalizer.Finalize(ctx, sub, v); err != nil {
		o.log.ErrorContext(ctx, "finalize submission failed", logger.Error(err))
		return err
	}
	o.log.InfoContext(ctx, "submission judged",
		logger.String("status", sub.Status.String()),
		logger.Any("time_used", sub.TimeUsed),
		logger.Any("memory_used", sub.MemoryUsed))
	return nil
}

func invokeFailureReason(err error) string {
	switch {
	case errors.Is(err, executor.ErrJudgerTimeout):
		return "judger_timeout"
	case errors.Is(err, executor.ErrJudgerFailed):
		return "judger_failed"
	case errors.Is(err, executor.ErrUnsupportedLanguage):
		return "unsupported_language"
	default:
		return "judger_unavailable"
	}
}
