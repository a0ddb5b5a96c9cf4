package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	roulettedomain "imobcrm_backend/internal/roulette/domain"
	rouletterepo "imobcrm_backend/internal/roulette/repository"
	"imobcrm_backend/platform/apperr"
	"imobcrm_backend/platform/logger"
)

type fakeRouletteRepo struct {
	roulettes map[uuid.UUID]roulettedomain.Roulette
	updated   []uuid.UUID
}

func (f *fakeRouletteRepo) Create(context.Context, rouletterepo.CreateRouletteParams) (roulettedomain.Roulette, error) {
	panic("not used")
}

func (f *fakeRouletteRepo) Update(_ context.Context, params rouletterepo.UpdateRouletteParams) (roulettedomain.Roulette, error) {
	r, ok := f.roulettes[params.ID]
	if !ok {
		return roulettedomain.Roulette{}, apperr.NotFound("roulette not found")
	}
	if params.Ativa != nil {
		r.Ativa = *params.Ativa
	}
	f.roulettes[params.ID] = r
	f.updated = append(f.updated, params.ID)
	return r, nil
}

func (f *fakeRouletteRepo) Delete(context.Context, uuid.UUID) error { panic("not used") }

func (f *fakeRouletteRepo) GetByID(_ context.Context, id uuid.UUID) (roulettedomain.Roulette, error) {
	r, ok := f.roulettes[id]
	if !ok {
		return roulettedomain.Roulette{}, apperr.NotFound("roulette not found")
	}
	return r, nil
}

func (f *fakeRouletteRepo) List(context.Context) ([]roulettedomain.Roulette, error) {
	panic("not used")
}

func (f *fakeRouletteRepo) ListActive(context.Context) ([]roulettedomain.Roulette, error) {
	out := []roulettedomain.Roulette{}
	for _, r := range f.roulettes {
		if r.Ativa {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRouletteRepo) AdvanceCursor(context.Context, uuid.UUID) (roulettedomain.BrokerRef, int, error) {
	panic("not used")
}

type fakeRefresher struct {
	calls int
}

func (f *fakeRefresher) RefreshLeadCounts(context.Context) error {
	f.calls++
	return nil
}

func TestWindowAuditDeactivatesExpired(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := roulettedomain.Roulette{ID: uuid.New(), Nome: "Expirada", Ativa: true, ValidUntil: &past}
	running := roulettedomain.Roulette{ID: uuid.New(), Nome: "Corrente", Ativa: true, ValidUntil: &future}
	unbounded := roulettedomain.Roulette{ID: uuid.New(), Nome: "Sem janela", Ativa: true}

	repo := &fakeRouletteRepo{roulettes: map[uuid.UUID]roulettedomain.Roulette{
		expired.ID:   expired,
		running.ID:   running,
		unbounded.ID: unbounded,
	}}

	w := &Worker{
		roulettes: repo,
		log:       logger.New("test"),
		now:       func() time.Time { return now },
	}

	if err := w.handleRouletteWindowAudit(context.Background(), nil); err != nil {
		t.Fatalf("audit: %v", err)
	}

	if len(repo.updated) != 1 || repo.updated[0] != expired.ID {
		t.Fatalf("expected exactly the expired roulette deactivated, got %v", repo.updated)
	}
	if repo.roulettes[expired.ID].Ativa {
		t.Fatal("expired roulette still active")
	}
	if !repo.roulettes[running.ID].Ativa || !repo.roulettes[unbounded.ID].Ativa {
		t.Fatal("in-window roulettes must stay active")
	}
}

func TestLeadCountRefreshTask(t *testing.T) {
	refresher := &fakeRefresher{}
	w := &Worker{counts: refresher, log: logger.New("test")}

	if err := w.handleLeadCountRefresh(context.Background(), nil); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected one refresh call, got %d", refresher.calls)
	}
}
