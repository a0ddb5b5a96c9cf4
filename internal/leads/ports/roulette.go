package ports

import (
	"context"

	"github.com/google/uuid"

	roulettedomain "imobcrm_backend/internal/roulette/domain"
)

// Assigner resolves the broker who should own a lead entering the given
// funnel. A (nil, nil, nil) return means no roulette is scheduled and the
// lead stays unassigned.
type Assigner interface {
	ResolveAssignee(ctx context.Context, funnelID uuid.UUID) (*roulettedomain.BrokerRef, *uuid.UUID, error)
}
