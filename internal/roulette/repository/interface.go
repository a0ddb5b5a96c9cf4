package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"imobcrm_backend/internal/roulette/domain"
)

// CreateRouletteParams holds roulette creation data. ParticipantIDs order
// is rotation order.
type CreateRouletteParams struct {
	Nome           string
	Ativa          bool
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	FunnelID       *uuid.UUID
	ParticipantIDs []uuid.UUID
}

// UpdateRouletteParams holds partial roulette update data. A non-nil
// ParticipantIDs replaces the whole participant list and re-clamps the
// rotation cursor.
type UpdateRouletteParams struct {
	ID              uuid.UUID
	Nome            *string
	Ativa           *bool
	ValidFrom       *time.Time
	ClearValidFrom  bool
	ValidUntil      *time.Time
	ClearValidUntil bool
	FunnelID        *uuid.UUID
	ClearFunnelID   bool
	ParticipantIDs  *[]uuid.UUID
}

// Repository defines persistence operations for roulettes. AdvanceCursor is
// the only writer of last_assigned_index outside configuration changes and
// must run as a single atomic read-modify-write.
type Repository interface {
	Create(ctx context.Context, params CreateRouletteParams) (domain.Roulette, error)
	Update(ctx context.Context, params UpdateRouletteParams) (domain.Roulette, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Roulette, error)
	List(ctx context.Context) ([]domain.Roulette, error)

	// ListActive returns the roulettes whose active flag is set, regardless
	// of window; window evaluation belongs to domain.ResolveActive.
	ListActive(ctx context.Context) ([]domain.Roulette, error)

	// AdvanceCursor atomically advances the rotation cursor and returns the
	// assigned participant with the new cursor value. Two concurrent calls
	// never observe the same cursor.
	AdvanceCursor(ctx context.Context, rouletteID uuid.UUID) (domain.BrokerRef, int, error)
}
