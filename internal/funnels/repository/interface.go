package repository

import (
	"context"

	"github.com/google/uuid"
)

// Funnel is a named, ordered sequence of stages representing a sales
// process variant.
type Funnel struct {
	ID             uuid.UUID
	Name           string
	IsDefaultEntry bool
	IsPreSales     bool
	Stages         []Stage
	CreatedAt      string
	UpdatedAt      string
}

// Stage is one step within a funnel. Position defines the left-to-right
// board order and is unique per funnel.
type Stage struct {
	ID       uuid.UUID
	FunnelID uuid.UUID
	Name     string
	Position int
	Color    string
}

// StageInput describes a stage to create alongside its funnel.
type StageInput struct {
	Name     string
	Position int
	Color    string
}

// CreateFunnelParams holds funnel creation data.
type CreateFunnelParams struct {
	Name           string
	IsDefaultEntry bool
	IsPreSales     bool
	Stages         []StageInput
}

// UpdateFunnelParams holds partial funnel update data.
type UpdateFunnelParams struct {
	ID             uuid.UUID
	Name           *string
	IsDefaultEntry *bool
	IsPreSales     *bool
}

// CreateStageParams holds stage creation data.
type CreateStageParams struct {
	FunnelID uuid.UUID
	Name     string
	Position int
	Color    string
}

// UpdateStageParams holds partial stage update data.
type UpdateStageParams struct {
	ID       uuid.UUID
	Name     *string
	Position *int
	Color    *string
}

// Repository defines persistence operations for funnels and stages.
type Repository interface {
	CreateFunnel(ctx context.Context, params CreateFunnelParams) (Funnel, error)
	UpdateFunnel(ctx context.Context, params UpdateFunnelParams) (Funnel, error)
	DeleteFunnel(ctx context.Context, id uuid.UUID) error
	GetFunnelByID(ctx context.Context, id uuid.UUID) (Funnel, error)
	ListFunnels(ctx context.Context) ([]Funnel, error)
	GetDefaultEntryFunnel(ctx context.Context) (Funnel, error)
	GetFirstFunnel(ctx context.Context) (Funnel, error)

	CreateStage(ctx context.Context, params CreateStageParams) (Stage, error)
	UpdateStage(ctx context.Context, params UpdateStageParams) (Stage, error)
	DeleteStage(ctx context.Context, id uuid.UUID) error
	ListStages(ctx context.Context, funnelID uuid.UUID) ([]Stage, error)
}
