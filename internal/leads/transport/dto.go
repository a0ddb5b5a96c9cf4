package transport

import (
	"time"

	"github.com/google/uuid"

	"imobcrm_backend/internal/leads/repository"
)

// TagResponse is a lead label on the wire.
type TagResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

// LeadResponse is the wire representation of a lead.
type LeadResponse struct {
	ID            uuid.UUID     `json:"id"`
	NomeCompleto  string        `json:"nomeCompleto"`
	Email         string        `json:"email"`
	Telefone      string        `json:"telefone"`
	FunnelID      uuid.UUID     `json:"funnelId"`
	FunnelStageID uuid.UUID     `json:"funnelStageId"`
	CorretorID    *uuid.UUID    `json:"corretorId"`
	Tags          []TagResponse `json:"tags"`
	OverallStatus string        `json:"overallStatus"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func ToLeadResponse(lead repository.Lead) LeadResponse {
	tags := make([]TagResponse, 0, len(lead.Tags))
	for _, tag := range lead.Tags {
		tags = append(tags, TagResponse{ID: tag.ID, Name: tag.Name, Color: tag.Color})
	}
	return LeadResponse{
		ID:            lead.ID,
		NomeCompleto:  lead.NomeCompleto,
		Email:         lead.Email,
		Telefone:      lead.Telefone,
		FunnelID:      lead.FunnelID,
		FunnelStageID: lead.StageID,
		CorretorID:    lead.CorretorID,
		Tags:          tags,
		OverallStatus: lead.OverallStatus,
		CreatedAt:     lead.CreatedAt,
		UpdatedAt:     lead.UpdatedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadResponse(lead))
	}
	return out
}

// CreateLeadRequest creates a lead. FunnelID is optional; when absent the
// default entry funnel is used. CorretorID is required for manager-tier
// callers and ignored for brokers, who always receive their own leads.
type CreateLeadRequest struct {
	NomeCompleto string      `json:"nomeCompleto" validate:"required,min=2,max=160"`
	Email        string      `json:"email" validate:"omitempty,email"`
	Telefone     string      `json:"telefone" validate:"required,min=8,max=32"`
	FunnelID     *uuid.UUID  `json:"funnelId" validate:"omitempty"`
	CorretorID   *uuid.UUID  `json:"corretorId" validate:"omitempty"`
	TagIDs       []uuid.UUID `json:"tagIds" validate:"omitempty,dive"`
}

// IntakeLeadRequest is the unauthenticated webhook payload for external
// lead sources. Assignment always goes through the active roulette.
type IntakeLeadRequest struct {
	NomeCompleto string     `json:"nomeCompleto" validate:"required,min=2,max=160"`
	Email        string     `json:"email" validate:"omitempty,email"`
	Telefone     string     `json:"telefone" validate:"required,min=8,max=32"`
	FunnelID     *uuid.UUID `json:"funnelId" validate:"omitempty"`
}

// UpdateLeadRequest partially updates a lead. Fields left null are kept.
type UpdateLeadRequest struct {
	NomeCompleto *string      `json:"nomeCompleto" validate:"omitempty,min=2,max=160"`
	Email        *string      `json:"email" validate:"omitempty,email"`
	Telefone     *string      `json:"telefone" validate:"omitempty,min=8,max=32"`
	CorretorID   OptionalUUID `json:"corretorId"`
	TagIDs       *[]uuid.UUID `json:"tagIds" validate:"omitempty,dive"`
}

// MoveStageRequest moves a lead to another stage of its funnel.
type MoveStageRequest struct {
	FunnelStageID uuid.UUID `json:"funnelStageId" validate:"required"`
}

// SetStatusRequest changes the lead's overall status.
type SetStatusRequest struct {
	OverallStatus string `json:"overallStatus" validate:"required,oneof=active won lost"`
}
