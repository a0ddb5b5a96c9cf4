package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"imobcrm_backend/internal/events"
	roulettedomain "imobcrm_backend/internal/roulette/domain"
	"imobcrm_backend/platform/logger"
)

type enqueuedTask struct {
	task *asynq.Task
	opts []asynq.Option
}

type fakeEnqueuer struct {
	tasks []enqueuedTask
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, enqueuedTask{task: task, opts: opts})
	return &asynq.TaskInfo{}, nil
}

func processAtOf(t *testing.T, opts []asynq.Option) time.Time {
	t.Helper()
	for _, opt := range opts {
		if opt.Type() == asynq.ProcessAtOpt {
			at, ok := opt.Value().(time.Time)
			if !ok {
				t.Fatalf("unexpected ProcessAt value %v", opt.Value())
			}
			return at
		}
	}
	t.Fatalf("no ProcessAt option among %v", opts)
	return time.Time{}
}

func publishSaved(t *testing.T, bus *events.InMemoryBus, rouletteID uuid.UUID) {
	t.Helper()
	err := bus.PublishSync(context.Background(), events.RouletteSaved{
		BaseEvent:  events.NewBaseEvent(),
		RouletteID: rouletteID,
	})
	if err != nil {
		t.Fatalf("publish roulette saved: %v", err)
	}
}

func TestRouletteSaveSchedulesWindowAudit(t *testing.T) {
	validUntil := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	roulette := roulettedomain.Roulette{ID: uuid.New(), Nome: "Campanha", Ativa: true, ValidUntil: &validUntil}

	repo := &fakeRouletteRepo{roulettes: map[uuid.UUID]roulettedomain.Roulette{roulette.ID: roulette}}
	client := &fakeEnqueuer{}
	bus := events.NewInMemoryBus(logger.New("test"))
	RegisterRouletteAudit(bus, client, repo, "default", logger.New("test"))

	publishSaved(t, bus, roulette.ID)

	if len(client.tasks) != 1 {
		t.Fatalf("expected one scheduled task, got %d", len(client.tasks))
	}
	if got := client.tasks[0].task.Type(); got != TypeRouletteWindowAudit {
		t.Fatalf("expected %s task, got %s", TypeRouletteWindowAudit, got)
	}
	if at := processAtOf(t, client.tasks[0].opts); !at.Equal(validUntil) {
		t.Fatalf("expected audit at %v, got %v", validUntil, at)
	}
}

func TestRouletteSaveWithoutWindowSchedulesNothing(t *testing.T) {
	unbounded := roulettedomain.Roulette{ID: uuid.New(), Nome: "Permanente", Ativa: true}
	past := time.Now().Add(-time.Hour)
	alreadyClosed := roulettedomain.Roulette{ID: uuid.New(), Nome: "Encerrada", Ativa: true, ValidUntil: &past}

	repo := &fakeRouletteRepo{roulettes: map[uuid.UUID]roulettedomain.Roulette{
		unbounded.ID:     unbounded,
		alreadyClosed.ID: alreadyClosed,
	}}
	client := &fakeEnqueuer{}
	bus := events.NewInMemoryBus(logger.New("test"))
	RegisterRouletteAudit(bus, client, repo, "default", logger.New("test"))

	publishSaved(t, bus, unbounded.ID)
	publishSaved(t, bus, alreadyClosed.ID)

	if len(client.tasks) != 0 {
		t.Fatalf("expected no scheduled tasks, got %d", len(client.tasks))
	}
}
