// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"imobcrm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the funnel.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	FunnelID   uuid.UUID  `json:"funnelId"`
	StageID    uuid.UUID  `json:"stageId"`
	CorretorID *uuid.UUID `json:"corretorId,omitempty"`
	Source     string     `json:"source,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadAssigned is published when a lead gains or changes its owning broker,
// whether through the roulette or a manual reassignment.
type LeadAssigned struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	CorretorID uuid.UUID  `json:"corretorId"`
	RouletteID *uuid.UUID `json:"rouletteId,omitempty"`
	Automatic  bool       `json:"automatic"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadStageMoved is published when a lead moves between pipeline stages.
type LeadStageMoved struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	FunnelID    uuid.UUID `json:"funnelId"`
	FromStageID uuid.UUID `json:"fromStageId"`
	ToStageID   uuid.UUID `json:"toStageId"`
	MovedBy     uuid.UUID `json:"movedBy"`
}

func (e LeadStageMoved) EventName() string { return "leads.lead.stage_moved" }

// LeadStatusChanged is published when a lead is marked won or lost,
// or reactivated.
type LeadStatusChanged struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	CorretorID *uuid.UUID `json:"corretorId,omitempty"`
	Status     string     `json:"status"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// =============================================================================
// Roulette Domain Events
// =============================================================================

// RouletteAdvanced is published after the rotation cursor moves.
type RouletteAdvanced struct {
	BaseEvent
	RouletteID uuid.UUID `json:"rouletteId"`
	CorretorID uuid.UUID `json:"corretorId"`
	NewIndex   int       `json:"newIndex"`
}

func (e RouletteAdvanced) EventName() string { return "roulette.advanced" }

// RouletteSaved is published when a roulette configuration is created or
// updated, so the scheduler can (re)plan window audits.
type RouletteSaved struct {
	BaseEvent
	RouletteID uuid.UUID `json:"rouletteId"`
}

func (e RouletteSaved) EventName() string { return "roulette.saved" }
