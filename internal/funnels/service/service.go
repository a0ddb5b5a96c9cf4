package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"imobcrm_backend/internal/funnels/repository"
	"imobcrm_backend/internal/funnels/transport"
	"imobcrm_backend/platform/logger"
)

const defaultStageColor = "#94a3b8"

// Service provides business logic for funnels and stages.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new funnels service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// ListFunnels retrieves all funnels with their ordered stages.
func (s *Service) ListFunnels(ctx context.Context) (transport.FunnelListResponse, error) {
	funnels, err := s.repo.ListFunnels(ctx)
	if err != nil {
		return transport.FunnelListResponse{}, err
	}
	return toFunnelListResponse(funnels), nil
}

// GetFunnelByID retrieves a funnel by ID.
func (s *Service) GetFunnelByID(ctx context.Context, id uuid.UUID) (transport.FunnelResponse, error) {
	funnel, err := s.repo.GetFunnelByID(ctx, id)
	if err != nil {
		return transport.FunnelResponse{}, err
	}
	return toFunnelResponse(funnel), nil
}

// CreateFunnel creates a funnel with its initial stages.
func (s *Service) CreateFunnel(ctx context.Context, req transport.CreateFunnelRequest) (transport.FunnelResponse, error) {
	params := repository.CreateFunnelParams{
		Name:           strings.TrimSpace(req.Name),
		IsDefaultEntry: req.IsDefaultEntry,
		IsPreSales:     req.IsPreSales,
	}
	for _, stage := range req.Stages {
		params.Stages = append(params.Stages, repository.StageInput{
			Name:     strings.TrimSpace(stage.Name),
			Position: stage.Order,
			Color:    stageColor(stage.Color),
		})
	}

	funnel, err := s.repo.CreateFunnel(ctx, params)
	if err != nil {
		return transport.FunnelResponse{}, err
	}

	s.log.Info("funnel created", "id", funnel.ID, "name", funnel.Name, "defaultEntry", funnel.IsDefaultEntry)
	return toFunnelResponse(funnel), nil
}

// UpdateFunnel partially updates a funnel.
func (s *Service) UpdateFunnel(ctx context.Context, id uuid.UUID, req transport.UpdateFunnelRequest) (transport.FunnelResponse, error) {
	funnel, err := s.repo.UpdateFunnel(ctx, repository.UpdateFunnelParams{
		ID:             id,
		Name:           trimmed(req.Name),
		IsDefaultEntry: req.IsDefaultEntry,
		IsPreSales:     req.IsPreSales,
	})
	if err != nil {
		return transport.FunnelResponse{}, err
	}
	return toFunnelResponse(funnel), nil
}

// DeleteFunnel deletes a funnel. Fails with a conflict while clients
// still live in it.
func (s *Service) DeleteFunnel(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteFunnel(ctx, id); err != nil {
		return err
	}
	s.log.Info("funnel deleted", "id", id)
	return nil
}

// CreateStage adds a stage to a funnel.
func (s *Service) CreateStage(ctx context.Context, funnelID uuid.UUID, req transport.CreateStageRequest) (transport.StageResponse, error) {
	stage, err := s.repo.CreateStage(ctx, repository.CreateStageParams{
		FunnelID: funnelID,
		Name:     strings.TrimSpace(req.Name),
		Position: req.Order,
		Color:    stageColor(req.Color),
	})
	if err != nil {
		return transport.StageResponse{}, err
	}
	return toStageResponse(stage), nil
}

// UpdateStage partially updates a stage.
func (s *Service) UpdateStage(ctx context.Context, id uuid.UUID, req transport.UpdateStageRequest) (transport.StageResponse, error) {
	stage, err := s.repo.UpdateStage(ctx, repository.UpdateStageParams{
		ID:       id,
		Name:     trimmed(req.Name),
		Position: req.Order,
		Color:    req.Color,
	})
	if err != nil {
		return transport.StageResponse{}, err
	}
	return toStageResponse(stage), nil
}

// DeleteStage deletes a stage. Deletion is blocked while clients still
// reference the stage so the board never orphans leads silently.
func (s *Service) DeleteStage(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteStage(ctx, id)
}

func toFunnelResponse(f repository.Funnel) transport.FunnelResponse {
	resp := transport.FunnelResponse{
		ID:             f.ID,
		Name:           f.Name,
		IsDefaultEntry: f.IsDefaultEntry,
		IsPreSales:     f.IsPreSales,
		Stages:         make([]transport.StageResponse, 0, len(f.Stages)),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
	for _, stage := range f.Stages {
		resp.Stages = append(resp.Stages, toStageResponse(stage))
	}
	return resp
}

func toStageResponse(s repository.Stage) transport.StageResponse {
	return transport.StageResponse{
		ID:       s.ID,
		FunnelID: s.FunnelID,
		Name:     s.Name,
		Order:    s.Position,
		Color:    s.Color,
	}
}

func toFunnelListResponse(funnels []repository.Funnel) transport.FunnelListResponse {
	resp := transport.FunnelListResponse{Funnels: make([]transport.FunnelResponse, 0, len(funnels))}
	for _, f := range funnels {
		resp.Funnels = append(resp.Funnels, toFunnelResponse(f))
	}
	return resp
}

func stageColor(color string) string {
	if strings.TrimSpace(color) == "" {
		return defaultStageColor
	}
	return color
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	t := strings.TrimSpace(*value)
	return &t
}
