package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imobcrm_backend/internal/email"
	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/funnels"
	apphttp "imobcrm_backend/internal/http"
	"imobcrm_backend/internal/http/router"
	"imobcrm_backend/internal/leads"
	"imobcrm_backend/internal/notification"
	"imobcrm_backend/internal/pipeline"
	"imobcrm_backend/internal/roulette"
	"imobcrm_backend/internal/scheduler"
	"imobcrm_backend/internal/users"
	"imobcrm_backend/migrations"
	"imobcrm_backend/platform/cache"
	"imobcrm_backend/platform/config"
	"imobcrm_backend/platform/db"
	"imobcrm_backend/platform/logger"
	"imobcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Redis is optional; without it lead counts fall back to the database.
	redisClient, err := cache.NewClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("redis connection established")
	}

	sender := email.FromConfig(cfg, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	funnelsModule := funnels.NewModule(pool, val, log)
	rouletteModule := roulette.NewModule(pool, eventBus, val, log)
	leadsModule := leads.NewModule(pool, funnelsModule.Repository(), rouletteModule.Service(), eventBus, cfg, val, log)
	usersModule := users.NewModule(pool, redisClient, cfg.LeadCountTTL, eventBus, val, log)
	notificationModule := notification.NewModule(pool, usersModule.Repository(), leadsModule.Repository(), sender, eventBus, log)
	pipelineModule := pipeline.NewModule(leadsModule.Repository(), funnelsModule.Repository(), notificationModule.Service(), log)

	// With Redis available, roulette saves schedule a window audit at
	// their validUntil; without it only the periodic sweep deactivates
	// expired rotations.
	if cfg.RedisURL != "" {
		asynqClient, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to create task client", "error", err)
			panic("failed to create task client: " + err.Error())
		}
		defer asynqClient.Close()
		scheduler.RegisterRouletteAudit(eventBus, asynqClient, rouletteModule.Repository(), cfg.AsynqQueueName, log)
	} else {
		log.Info("window audit scheduling disabled, redis not configured")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			funnelsModule,
			rouletteModule,
			leadsModule,
			pipelineModule,
			usersModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// withRetry runs fn up to attempts times with quadratic backoff, bailing
// out early when the context is cancelled.
func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("%s: %w", name, lastErr)
}
