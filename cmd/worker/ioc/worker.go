package ioc

import (
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_pipeline/cmd/worker/config"
	"github.com/to404hanga/online_judge_pipeline/cmd/worker/service"
	"github.com/to404hanga/online_judge_pipeline/event"
	"github.com/to404hanga/online_judge_pipeline/executor"
	"github.com/to404hanga/online_judge_pipeline/repository"
	ojservice "github.com/to404hanga/online_judge_pipeline/service"
	"github.com/to404hanga/online_judge_pipeline/standings"
	"github.com/to404hanga/pkg404/cachex/lru"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

func InitWorkerConfig() config.WorkerConfig {
	var cfg config.WorkerConfig
	err := viper.UnmarshalKey(cfg.Key(), &cfg)
	if err != nil {
		log.Panicf("unmarshal worker config failed, err: %v", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return cfg
}

func InitPool(l loggerv2.Logger, cfg config.WorkerConfig) *ojservice.Pool {
	return ojservice.NewPool(l, cfg.Concurrency, cfg.QueueSize)
}

func InitFinalizer(l loggerv2.Logger, submissions *repository.SubmissionRepository, contests *repository.ContestRepository, ledger *standings.Ledger, cache *lru.Cache) *ojservice.Finalizer {
	return ojservice.NewFinalizer(l, submissions, contests, ledger, cache)
}

func InitOrchestrator(l loggerv2.Logger, invoker executor.Invoker, finalizer *ojservice.Finalizer) *ojservice.Orchestrator {
	return ojservice.NewOrchestrator(l, invoker, finalizer)
}

func InitJudgerWorkerService(l loggerv2.Logger, cfg config.WorkerConfig, rdb redis.Cmdable, pool *ojservice.Pool, orchestrator *ojservice.Orchestrator, producer event.Producer) *service.JudgeService {
	return service.NewJudgeService(l, rdb, pool, orchestrator, producer, cfg.Concurrency, time.Duration(cfg.XAutoClaimTimeoutMinutes)*time.Minute)
}
