package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"imobcrm_backend/internal/events"
	rouletterepo "imobcrm_backend/internal/roulette/repository"
	"imobcrm_backend/platform/logger"
)

// TaskEnqueuer is the slice of asynq.Client the audit scheduling needs.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RegisterRouletteAudit subscribes to roulette saves and schedules a
// window audit at each saved roulette's validUntil, so an expiring
// rotation is deactivated the moment its window closes instead of on the
// next periodic sweep.
func RegisterRouletteAudit(bus events.Bus, client TaskEnqueuer, roulettes rouletterepo.Repository, queue string, log *logger.Logger) {
	bus.Subscribe("roulette.saved", events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		ev, ok := event.(events.RouletteSaved)
		if !ok {
			log.Error("unexpected event payload", "event", event.EventName())
			return nil
		}

		roulette, err := roulettes.GetByID(ctx, ev.RouletteID)
		if err != nil {
			return fmt.Errorf("load saved roulette: %w", err)
		}
		if roulette.ValidUntil == nil || !roulette.ValidUntil.After(time.Now()) {
			return nil
		}

		task, err := NewRouletteWindowAuditTask()
		if err != nil {
			return err
		}
		if _, err := client.EnqueueContext(ctx, task, asynq.ProcessAt(*roulette.ValidUntil), asynq.Queue(queue)); err != nil {
			return fmt.Errorf("enqueue window audit: %w", err)
		}

		log.Info("window audit scheduled", "rouletteId", ev.RouletteID, "at", *roulette.ValidUntil)
		return nil
	}))
}
