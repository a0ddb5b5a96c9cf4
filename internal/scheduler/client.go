package scheduler

import (
	"crypto/tls"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"imobcrm_backend/platform/config"
)

// RedisClientOpt builds the asynq Redis connection from the shared config.
func RedisClientOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}

	clientOpt := asynq.RedisClientOpt{
		Addr:     opt.Addr,
		Username: opt.Username,
		Password: opt.Password,
		DB:       opt.DB,
	}
	if opt.TLSConfig != nil {
		clientOpt.TLSConfig = opt.TLSConfig
		if cfg.GetRedisTLSInsecure() {
			clientOpt.TLSConfig.InsecureSkipVerify = true
		}
	} else if cfg.GetRedisTLSInsecure() {
		clientOpt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return clientOpt, nil
}

// NewClient creates an asynq task enqueuer.
func NewClient(cfg config.SchedulerConfig) (*asynq.Client, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}
	return asynq.NewClient(opt), nil
}
