// Package transport defines request and response DTOs for the roulette module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantResponse is the API shape of a rotation participant.
// LeadCount is display information only.
type ParticipantResponse struct {
	ID        uuid.UUID `json:"id"`
	Nome      string    `json:"nome"`
	Role      string    `json:"role"`
	LeadCount int       `json:"leadCount"`
}

// RouletteResponse is the API shape of a roulette configuration.
type RouletteResponse struct {
	ID                uuid.UUID             `json:"id"`
	Nome              string                `json:"nome"`
	Ativa             bool                  `json:"ativa"`
	LastAssignedIndex int                   `json:"last_assigned_index"`
	ValidFrom         *time.Time            `json:"validFrom,omitempty"`
	ValidUntil        *time.Time            `json:"validUntil,omitempty"`
	FunnelID          *uuid.UUID            `json:"funnelId,omitempty"`
	Usuarios          []ParticipantResponse `json:"usuarios"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// RouletteListResponse wraps the roulette collection.
type RouletteListResponse struct {
	Roletas []RouletteResponse `json:"roletas"`
}

// CreateRouletteRequest creates a roulette. Usuarios order is rotation order.
type CreateRouletteRequest struct {
	Nome       string      `json:"nome" validate:"required,min=1,max=120"`
	Ativa      *bool       `json:"ativa"`
	ValidFrom  *time.Time  `json:"validFrom"`
	ValidUntil *time.Time  `json:"validUntil"`
	FunnelID   *uuid.UUID  `json:"funnelId"`
	Usuarios   []uuid.UUID `json:"usuarios" validate:"required,min=1"`
}

// UpdateRouletteRequest partially updates a roulette. Explicit nulls for
// validFrom/validUntil/funnelId clear the fields.
type UpdateRouletteRequest struct {
	Nome       *string           `json:"nome" validate:"omitempty,min=1,max=120"`
	Ativa      *bool             `json:"ativa"`
	ValidFrom  OptionalTime      `json:"validFrom"`
	ValidUntil OptionalTime      `json:"validUntil"`
	FunnelID   OptionalUUID      `json:"funnelId"`
	Usuarios   *[]uuid.UUID      `json:"usuarios"`
}

// AssignResponse is returned by the manual advance endpoint.
type AssignResponse struct {
	Assignee          ParticipantResponse `json:"assignee"`
	LastAssignedIndex int                 `json:"last_assigned_index"`
}
