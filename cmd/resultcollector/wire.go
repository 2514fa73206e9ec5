//go:build wireinject

package main

import (
	"github.com/google/wire"
	iocself "github.com/to404hanga/online_judge_pipeline/cmd/resultcollector/ioc"
	"github.com/to404hanga/online_judge_pipeline/cmd/resultcollector/service"
	"github.com/to404hanga/online_judge_pipeline/ioc"
	"github.com/to404hanga/online_judge_pipeline/repository"
)

func BuildDependency() *service.ResultCollectorService {
	wire.Build(
		ioc.InitLogger,
		ioc.InitDB,
		ioc.InitKafka,
		iocself.InitResultCollectorConsumerGroup,
		ioc.InitRedis,
		ioc.InitRankCache,
		ioc.InitLedger,
		repository.NewContestRepository,
		repository.NewStandingsRepository,
		service.NewResultCollectorService,
	)
	return nil
}
