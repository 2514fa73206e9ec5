package ioc

import (
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_pipeline/config"
	"github.com/to404hanga/online_judge_pipeline/repository"
	"github.com/to404hanga/online_judge_pipeline/standings"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

func InitLedger(l loggerv2.Logger, store *repository.StandingsRepository, contests *repository.ContestRepository) *standings.Ledger {
	return standings.NewLedger(l, store, contests)
}

func InitRankCache(rdb redis.Cmdable) *standings.RankCache {
	var cfg config.RankCacheConfig
	if err := viper.UnmarshalKey(cfg.Key(), &cfg); err != nil {
		log.Panicf("unmarshal rank cache config fail, err: %v", err)
	}
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return standings.NewRankCache(rdb, ttl)
}
