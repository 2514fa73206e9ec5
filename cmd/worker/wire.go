//go:build wireinject

package main

import (
	"github.com/google/wire"
	iocself "github.com/to404hanga/online_judge_pipeline/cmd/worker/ioc"
	"github.com/to404hanga/online_judge_pipeline/cmd/worker/service"
	"github.com/to404hanga/online_judge_pipeline/event"
	"github.com/to404hanga/online_judge_pipeline/ioc"
	"github.com/to404hanga/online_judge_pipeline/repository"
)

func BuildDependency() *service.JudgeService {
	wire.Build(
		ioc.InitLogger,
		ioc.InitDB,
		ioc.InitRedis,
		ioc.InitKafka,
		ioc.InitSyncProducer,
		ioc.InitLRUCache,
		ioc.InitInvoker,
		ioc.InitLedger,
		event.NewSaramaProducer,

		repository.NewSubmissionRepository,
		repository.NewContestRepository,
		repository.NewStandingsRepository,

		iocself.InitWorkerConfig,
		iocself.InitPool,
		iocself.InitFinalizer,
		iocself.InitOrchestrator,
		iocself.InitJudgerWorkerService,
	)
	return nil
}
