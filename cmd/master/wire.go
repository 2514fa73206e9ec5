//go:build wireinject

package main

import (
	"github.com/google/wire"
	iocself "github.com/to404hanga/online_judge_pipeline/cmd/master/ioc"
	"github.com/to404hanga/online_judge_pipeline/cmd/master/service"
	"github.com/to404hanga/online_judge_pipeline/ioc"
	"github.com/to404hanga/online_judge_pipeline/repository"
)

func BuildDependency() *service.SubmissionService {
	wire.Build(
		ioc.InitDB,
		ioc.InitRedis,
		ioc.InitKafka,
		ioc.InitLogger,
		ioc.InitLRUCache,
		iocself.InitJudgerMasterConsumerGroup,

		repository.NewSubmissionRepository,
		repository.NewProblemRepository,
		service.NewSubmissionService,
	)
	return nil
}
