// Package ports declares the interfaces the leads module needs from other
// modules. Concrete implementations are wired in by the composition root.
package ports

import (
	"context"

	"github.com/google/uuid"

	funnelrepo "imobcrm_backend/internal/funnels/repository"
)

// Aliases so the leads module does not spell the funnels import path in
// every signature.
type (
	Funnel = funnelrepo.Funnel
	Stage  = funnelrepo.Stage
)

// FunnelReader resolves entry funnels and stage membership for lead intake.
type FunnelReader interface {
	GetFunnelByID(ctx context.Context, id uuid.UUID) (funnelrepo.Funnel, error)
	GetDefaultEntryFunnel(ctx context.Context) (funnelrepo.Funnel, error)
	GetFirstFunnel(ctx context.Context) (funnelrepo.Funnel, error)
}
