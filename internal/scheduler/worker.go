package scheduler

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	roulettedomain "imobcrm_backend/internal/roulette/domain"
	rouletterepo "imobcrm_backend/internal/roulette/repository"
	"imobcrm_backend/platform/config"
	"imobcrm_backend/platform/logger"
)

// LeadCountRefresher recomputes the cached per-broker lead counts.
type LeadCountRefresher interface {
	RefreshLeadCounts(ctx context.Context) error
}

// Worker runs the background task handlers.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	roulettes rouletterepo.Repository
	counts    LeadCountRefresher
	log       *logger.Logger
	now       func() time.Time
}

// NewWorker creates the asynq server with its handlers registered.
func NewWorker(cfg config.SchedulerConfig, roulettes rouletterepo.Repository, counts LeadCountRefresher, log *logger.Logger) (*Worker, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.GetAsynqConcurrency(),
		Queues:      map[string]int{cfg.GetAsynqQueueName(): 1},
	})

	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		roulettes: roulettes,
		counts:    counts,
		log:       log,
		now:       time.Now,
	}
	w.mux.HandleFunc(TypeRouletteWindowAudit, w.handleRouletteWindowAudit)
	w.mux.HandleFunc(TypeLeadCountRefresh, w.handleLeadCountRefresh)
	return w, nil
}

// Run blocks processing tasks until the server is shut down.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown drains in-flight tasks and stops the server.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// handleRouletteWindowAudit flags roulettes whose window has fully passed
// by clearing their active bit, so operators see expired campaigns as
// inactive instead of silently never matching.
func (w *Worker) handleRouletteWindowAudit(ctx context.Context, _ *asynq.Task) error {
	roulettes, err := w.roulettes.ListActive(ctx)
	if err != nil {
		return err
	}

	now := w.now()
	expired := 0
	for _, roulette := range roulettes {
		if !windowExpired(roulette, now) {
			continue
		}
		off := false
		if _, err := w.roulettes.Update(ctx, rouletterepo.UpdateRouletteParams{
			ID:    roulette.ID,
			Ativa: &off,
		}); err != nil {
			w.log.Error("window audit: deactivation failed", "rouletteId", roulette.ID, "error", err)
			continue
		}
		expired++
		w.log.Info("window audit: roulette deactivated", "rouletteId", roulette.ID, "nome", roulette.Nome)
	}

	w.log.Info("roulette window audit done", "checked", len(roulettes), "expired", expired)
	return nil
}

func windowExpired(r roulettedomain.Roulette, now time.Time) bool {
	return r.ValidUntil != nil && now.After(*r.ValidUntil)
}

func (w *Worker) handleLeadCountRefresh(ctx context.Context, _ *asynq.Task) error {
	if err := w.counts.RefreshLeadCounts(ctx); err != nil {
		return err
	}
	w.log.Info("lead counts refreshed")
	return nil
}
