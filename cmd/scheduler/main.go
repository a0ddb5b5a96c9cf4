package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	rouletterepo "imobcrm_backend/internal/roulette/repository"
	"imobcrm_backend/internal/scheduler"
	usercache "imobcrm_backend/internal/users/cache"
	userrepo "imobcrm_backend/internal/users/repository"
	userservice "imobcrm_backend/internal/users/service"
	"imobcrm_backend/platform/cache"
	"imobcrm_backend/platform/config"
	"imobcrm_backend/platform/db"
	"imobcrm_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if cfg.RedisURL == "" {
		panic("REDIS_URL is required for the scheduler")
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.AsynqQueueName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	redisClient, err := cache.NewClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer redisClient.Close()

	counts := usercache.NewLeadCounts(redisClient, cfg.LeadCountTTL)
	usersService := userservice.New(userrepo.New(pool), counts, log)
	roulettes := rouletterepo.New(pool)

	worker, err := scheduler.NewWorker(cfg, roulettes, usersService, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	opt, err := scheduler.RedisClientOpt(cfg)
	if err != nil {
		panic("failed to build redis options: " + err.Error())
	}
	periodic := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	windowAudit, err := scheduler.NewRouletteWindowAuditTask()
	if err != nil {
		panic("failed to build window audit task: " + err.Error())
	}
	if _, err := periodic.Register("@every 10m", windowAudit, asynq.Queue(cfg.AsynqQueueName)); err != nil {
		panic("failed to register window audit: " + err.Error())
	}

	leadCountRefresh, err := scheduler.NewLeadCountRefreshTask()
	if err != nil {
		panic("failed to build lead count refresh task: " + err.Error())
	}
	if _, err := periodic.Register("@every 5m", leadCountRefresh, asynq.Queue(cfg.AsynqQueueName)); err != nil {
		panic("failed to register lead count refresh: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return periodic.Run() })
	g.Go(func() error { return worker.Run() })
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")
		periodic.Shutdown()
		worker.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("scheduler error", "error", err)
		panic("scheduler error: " + err.Error())
	}
}
