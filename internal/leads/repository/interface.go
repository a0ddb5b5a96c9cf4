package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tag labels a lead for board filtering.
type Tag struct {
	ID    uuid.UUID
	Name  string
	Color string
}

// Lead is a prospective buyer tracked through the sales funnel.
// Timestamps stay as time.Time here because the pipeline board filters on
// them; transport formats them for the wire.
type Lead struct {
	ID             uuid.UUID
	NomeCompleto   string
	Email          string
	Telefone       string
	TelefoneDigits string
	FunnelID       uuid.UUID
	StageID        uuid.UUID
	CorretorID     *uuid.UUID
	Tags           []Tag
	OverallStatus  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateLeadParams holds lead creation data. Telefone fields arrive
// pre-normalized from the service layer.
type CreateLeadParams struct {
	NomeCompleto   string
	Email          string
	Telefone       string
	TelefoneDigits string
	FunnelID       uuid.UUID
	StageID        uuid.UUID
	CorretorID     *uuid.UUID
	TagIDs         []uuid.UUID
}

// UpdateLeadParams holds partial lead update data. A non-nil TagIDs
// replaces the whole tag set.
type UpdateLeadParams struct {
	ID             uuid.UUID
	NomeCompleto   *string
	Email          *string
	Telefone       *string
	TelefoneDigits *string
	CorretorID     *uuid.UUID
	ClearCorretor  bool
	TagIDs         *[]uuid.UUID
}

// ListLeadsParams narrows the lead working set. Cheap predicates push down
// to SQL; the full composite filter is applied by the pipeline board.
type ListLeadsParams struct {
	FunnelID    *uuid.UUID
	Status      *string
	CorretorID  *uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Repository defines persistence operations for leads.
type Repository interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	Update(ctx context.Context, params UpdateLeadParams) (Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListLeadsParams) ([]Lead, error)

	// UpdateStage moves a lead to a stage, verifying the stage belongs to
	// the target funnel before writing.
	UpdateStage(ctx context.Context, id, funnelID, stageID uuid.UUID) (Lead, error)

	// SetStatus marks a lead active, won or lost.
	SetStatus(ctx context.Context, id uuid.UUID, status string) (Lead, error)

	// ListTags lists all tags for board filtering.
	ListTags(ctx context.Context) ([]Tag, error)
}
