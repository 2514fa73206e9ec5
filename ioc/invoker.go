package ioc

import (
	"log"
	"time"

	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_pipeline/config"
	"github.com/to404hanga/online_judge_pipeline/executor"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

const (
	JudgerModeProcess = "process"
	JudgerModeDocker  = "docker"
)

func InitInvoker(l loggerv2.Logger) executor.Invoker {
	var cfg config.JudgerConfig
	if err := viper.UnmarshalKey(cfg.Key(), &cfg); err != nil {
		log.Panicf("unmarshal judger config fail, err: %v", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.Mode {
	case JudgerModeDocker:
		inv, err := executor.NewDockerInvoker(l, cfg.Image, cfg.Command, cfg.PoolSize, cfg.MemoryLimitMB, timeout)
		if err != nil {
			log.Panicf("init docker invoker fail, err: %v", err)
		}
		return inv
	case JudgerModeProcess, "":
		inv, err := executor.NewProcessInvoker(l, cfg.Command, cfg.WorkDir, timeout)
		if err != nil {
			log.Panicf("init process invoker fail, err: %v", err)
		}
		return inv
	default:
		log.Panicf("unknown judger mode: %s", cfg.Mode)
		return nil
	}
}
