package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/roulette/domain"
	"imobcrm_backend/internal/roulette/repository"
	"imobcrm_backend/internal/roulette/transport"
	"imobcrm_backend/platform/logger"
)

// Service provides business logic for roulette configuration and rotation.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

// New creates a new roulette service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log, now: time.Now}
}

// List retrieves all roulettes.
func (s *Service) List(ctx context.Context) (transport.RouletteListResponse, error) {
	roulettes, err := s.repo.List(ctx)
	if err != nil {
		return transport.RouletteListResponse{}, err
	}
	return toListResponse(roulettes), nil
}

// GetByID retrieves a roulette by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.RouletteResponse, error) {
	roulette, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.RouletteResponse{}, err
	}
	return toResponse(roulette), nil
}

// Create creates a roulette configuration.
func (s *Service) Create(ctx context.Context, req transport.CreateRouletteRequest) (transport.RouletteResponse, error) {
	ativa := true
	if req.Ativa != nil {
		ativa = *req.Ativa
	}

	roulette, err := s.repo.Create(ctx, repository.CreateRouletteParams{
		Nome:           strings.TrimSpace(req.Nome),
		Ativa:          ativa,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		FunnelID:       req.FunnelID,
		ParticipantIDs: req.Usuarios,
	})
	if err != nil {
		return transport.RouletteResponse{}, err
	}

	s.log.Info("roulette created", "id", roulette.ID, "nome", roulette.Nome, "participants", len(roulette.Participants))
	s.bus.Publish(ctx, events.RouletteSaved{BaseEvent: events.NewBaseEvent(), RouletteID: roulette.ID})
	return toResponse(roulette), nil
}

// Update partially updates a roulette configuration.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateRouletteRequest) (transport.RouletteResponse, error) {
	params := repository.UpdateRouletteParams{
		ID:             id,
		Nome:           trimmed(req.Nome),
		Ativa:          req.Ativa,
		ParticipantIDs: req.Usuarios,
	}

	if req.ValidFrom.Set {
		if req.ValidFrom.Value == nil {
			params.ClearValidFrom = true
		} else {
			params.ValidFrom = req.ValidFrom.Value
		}
	}
	if req.ValidUntil.Set {
		if req.ValidUntil.Value == nil {
			params.ClearValidUntil = true
		} else {
			params.ValidUntil = req.ValidUntil.Value
		}
	}
	if req.FunnelID.Set {
		if req.FunnelID.Value == nil {
			params.ClearFunnelID = true
		} else {
			params.FunnelID = req.FunnelID.Value
		}
	}

	roulette, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.RouletteResponse{}, err
	}

	s.bus.Publish(ctx, events.RouletteSaved{BaseEvent: events.NewBaseEvent(), RouletteID: roulette.ID})
	return toResponse(roulette), nil
}

// Delete deletes a roulette configuration.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("roulette deleted", "id", id)
	return nil
}

// AssignNext manually advances the rotation and returns the assignee.
func (s *Service) AssignNext(ctx context.Context, id uuid.UUID) (transport.AssignResponse, error) {
	assignee, newIndex, err := s.repo.AdvanceCursor(ctx, id)
	if err != nil {
		return transport.AssignResponse{}, err
	}

	s.bus.Publish(ctx, events.RouletteAdvanced{
		BaseEvent:  events.NewBaseEvent(),
		RouletteID: id,
		CorretorID: assignee.ID,
		NewIndex:   newIndex,
	})

	return transport.AssignResponse{
		Assignee:          toParticipantResponse(assignee),
		LastAssignedIndex: newIndex,
	}, nil
}

// ResolveAssignee resolves the roulette in effect for the funnel right now
// and advances it. Returns (nil, nil, nil) when no roulette is scheduled —
// the lead stays unassigned pending manual assignment.
func (s *Service) ResolveAssignee(ctx context.Context, funnelID uuid.UUID) (*domain.BrokerRef, *uuid.UUID, error) {
	candidates, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, nil, err
	}

	resolved := domain.ResolveActive(candidates, funnelID, s.now())
	if resolved == nil {
		s.log.Info("no roulette scheduled", "funnelId", funnelID)
		return nil, nil, nil
	}

	assignee, newIndex, err := s.repo.AdvanceCursor(ctx, resolved.ID)
	if err != nil {
		return nil, nil, err
	}

	s.bus.Publish(ctx, events.RouletteAdvanced{
		BaseEvent:  events.NewBaseEvent(),
		RouletteID: resolved.ID,
		CorretorID: assignee.ID,
		NewIndex:   newIndex,
	})

	rouletteID := resolved.ID
	return &assignee, &rouletteID, nil
}

func toResponse(r domain.Roulette) transport.RouletteResponse {
	resp := transport.RouletteResponse{
		ID:                r.ID,
		Nome:              r.Nome,
		Ativa:             r.Ativa,
		LastAssignedIndex: r.LastAssignedIndex,
		ValidFrom:         r.ValidFrom,
		ValidUntil:        r.ValidUntil,
		FunnelID:          r.FunnelID,
		Usuarios:          make([]transport.ParticipantResponse, 0, len(r.Participants)),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	for _, p := range r.Participants {
		resp.Usuarios = append(resp.Usuarios, toParticipantResponse(p))
	}
	return resp
}

func toParticipantResponse(p domain.BrokerRef) transport.ParticipantResponse {
	return transport.ParticipantResponse{
		ID:        p.ID,
		Nome:      p.Nome,
		Role:      p.Role,
		LeadCount: p.LeadCount,
	}
}

func toListResponse(roulettes []domain.Roulette) transport.RouletteListResponse {
	resp := transport.RouletteListResponse{Roletas: make([]transport.RouletteResponse, 0, len(roulettes))}
	for _, r := range roulettes {
		resp.Roletas = append(resp.Roletas, toResponse(r))
	}
	return resp
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	t := strings.TrimSpace(*value)
	return &t
}
