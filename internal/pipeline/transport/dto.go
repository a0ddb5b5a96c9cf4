package transport

import (
	"github.com/google/uuid"

	leadtransport "imobcrm_backend/internal/leads/transport"
)

// StageColumn is one rendered board column.
type StageColumn struct {
	ID    uuid.UUID                    `json:"id"`
	Name  string                       `json:"name"`
	Order int                          `json:"order"`
	Color string                       `json:"color"`
	Leads []leadtransport.LeadResponse `json:"leads"`
}

// BoardResponse is the full pipeline board for one funnel.
type BoardResponse struct {
	FunnelID   uuid.UUID     `json:"funnelId"`
	FunnelName string        `json:"funnelName"`
	Stages     []StageColumn `json:"stages"`
}
