// Package transport defines request and response DTOs for the funnels module.
package transport

import "github.com/google/uuid"

// StageResponse is the API shape of a funnel stage.
type StageResponse struct {
	ID       uuid.UUID `json:"id"`
	FunnelID uuid.UUID `json:"funnelId"`
	Name     string    `json:"name"`
	Order    int       `json:"order"`
	Color    string    `json:"color"`
}

// FunnelResponse is the API shape of a funnel.
type FunnelResponse struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	IsDefaultEntry bool            `json:"isDefaultEntry"`
	IsPreSales     bool            `json:"isPreSales"`
	Stages         []StageResponse `json:"stages"`
	CreatedAt      string          `json:"createdAt"`
	UpdatedAt      string          `json:"updatedAt"`
}

// FunnelListResponse wraps the funnel collection.
type FunnelListResponse struct {
	Funnels []FunnelResponse `json:"funnels"`
}

// CreateStageInput is a stage definition inside a funnel create request.
type CreateStageInput struct {
	Name  string `json:"name" validate:"required,min=1,max=120"`
	Order int    `json:"order" validate:"gte=0"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// CreateFunnelRequest creates a funnel with its initial stages.
type CreateFunnelRequest struct {
	Name           string             `json:"name" validate:"required,min=1,max=120"`
	IsDefaultEntry bool               `json:"isDefaultEntry"`
	IsPreSales     bool               `json:"isPreSales"`
	Stages         []CreateStageInput `json:"stages" validate:"dive"`
}

// UpdateFunnelRequest partially updates a funnel.
type UpdateFunnelRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=120"`
	IsDefaultEntry *bool   `json:"isDefaultEntry"`
	IsPreSales     *bool   `json:"isPreSales"`
}

// CreateStageRequest adds a stage to an existing funnel.
type CreateStageRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=120"`
	Order int    `json:"order" validate:"gte=0"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// UpdateStageRequest partially updates a stage.
type UpdateStageRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=120"`
	Order *int    `json:"order" validate:"omitempty,gte=0"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}
