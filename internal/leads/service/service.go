package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/leads/domain"
	"imobcrm_backend/internal/leads/ports"
	"imobcrm_backend/internal/leads/repository"
	"imobcrm_backend/internal/leads/transport"
	"imobcrm_backend/platform/apperr"
	"imobcrm_backend/platform/httpkit"
	"imobcrm_backend/platform/logger"
	"imobcrm_backend/platform/phone"
)

// Service coordinates lead intake, ownership and pipeline progression.
type Service struct {
	repo     repository.Repository
	funnels  ports.FunnelReader
	assigner ports.Assigner
	bus      events.Bus
	log      *logger.Logger
}

// New creates a new leads service.
func New(repo repository.Repository, funnels ports.FunnelReader, assigner ports.Assigner, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, funnels: funnels, assigner: assigner, bus: bus, log: log}
}

// Create registers a lead on behalf of an authenticated principal.
// Brokers always become the owner of leads they create; manager-tier
// callers must name the receiving broker explicitly.
func (s *Service) Create(ctx context.Context, identity httpkit.Identity, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	var corretorID *uuid.UUID
	if identity.IsManagerTier() {
		if req.CorretorID == nil {
			return transport.LeadResponse{}, apperr.Validation("corretorId is required for manager-created leads")
		}
		corretorID = req.CorretorID
	} else {
		id := identity.UserID()
		corretorID = &id
	}

	lead, _, err := s.intake(ctx, intakeParams{
		NomeCompleto: req.NomeCompleto,
		Email:        req.Email,
		Telefone:     req.Telefone,
		FunnelID:     req.FunnelID,
		CorretorID:   corretorID,
		TagIDs:       req.TagIDs,
		Source:       domain.SourceManual,
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return transport.ToLeadResponse(lead), nil
}

// Intake registers a lead arriving from an external source. The owner
// comes from the active roulette; when no roulette is scheduled the lead
// is created unassigned.
func (s *Service) Intake(ctx context.Context, req transport.IntakeLeadRequest) (transport.LeadResponse, error) {
	lead, _, err := s.intake(ctx, intakeParams{
		NomeCompleto: req.NomeCompleto,
		Email:        req.Email,
		Telefone:     req.Telefone,
		FunnelID:     req.FunnelID,
		Source:       domain.SourceWebhook,
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return transport.ToLeadResponse(lead), nil
}

type intakeParams struct {
	NomeCompleto string
	Email        string
	Telefone     string
	FunnelID     *uuid.UUID
	CorretorID   *uuid.UUID
	TagIDs       []uuid.UUID
	Source       string
}

// intake resolves the target funnel and first stage, picks the owning
// broker, persists the lead and publishes the created/assigned events.
func (s *Service) intake(ctx context.Context, params intakeParams) (repository.Lead, *uuid.UUID, error) {
	funnel, err := s.resolveEntryFunnel(ctx, params.FunnelID)
	if err != nil {
		return repository.Lead{}, nil, err
	}

	stage, err := firstStage(funnel)
	if err != nil {
		return repository.Lead{}, nil, err
	}

	corretorID := params.CorretorID
	var rouletteID *uuid.UUID
	if params.Source == domain.SourceWebhook {
		broker, rID, err := s.assigner.ResolveAssignee(ctx, funnel.ID)
		if err != nil {
			return repository.Lead{}, nil, err
		}
		if broker != nil {
			corretorID = &broker.ID
			rouletteID = rID
		}
	}

	normalized := phone.NormalizeE164(params.Telefone)
	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		NomeCompleto:   strings.TrimSpace(params.NomeCompleto),
		Email:          strings.TrimSpace(params.Email),
		Telefone:       normalized,
		TelefoneDigits: phone.Digits(normalized),
		FunnelID:       funnel.ID,
		StageID:        stage.ID,
		CorretorID:     corretorID,
		TagIDs:         params.TagIDs,
	})
	if err != nil {
		return repository.Lead{}, nil, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		FunnelID:   lead.FunnelID,
		StageID:    lead.StageID,
		CorretorID: lead.CorretorID,
		Source:     params.Source,
	})
	if lead.CorretorID != nil {
		s.bus.Publish(ctx, events.LeadAssigned{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     lead.ID,
			CorretorID: *lead.CorretorID,
			RouletteID: rouletteID,
			Automatic:  rouletteID != nil,
		})
		rid := ""
		if rouletteID != nil {
			rid = rouletteID.String()
		}
		s.log.AssignmentEvent(lead.ID.String(), lead.CorretorID.String(), rid, params.Source)
	}

	return lead, rouletteID, nil
}

// resolveEntryFunnel picks the funnel a new lead lands in: the explicit
// request, otherwise the flagged default entry funnel, otherwise the
// oldest funnel.
func (s *Service) resolveEntryFunnel(ctx context.Context, explicit *uuid.UUID) (funnel ports.Funnel, err error) {
	if explicit != nil {
		return s.funnels.GetFunnelByID(ctx, *explicit)
	}

	funnel, err = s.funnels.GetDefaultEntryFunnel(ctx)
	if err == nil {
		return funnel, nil
	}
	if apperr.GetKind(err) != apperr.KindNotFound {
		return ports.Funnel{}, err
	}

	funnel, err = s.funnels.GetFirstFunnel(ctx)
	if err == nil {
		return funnel, nil
	}
	if apperr.GetKind(err) == apperr.KindNotFound {
		return ports.Funnel{}, apperr.Conflict("no entry funnel configured")
	}
	return ports.Funnel{}, err
}

func firstStage(funnel ports.Funnel) (ports.Stage, error) {
	if len(funnel.Stages) == 0 {
		return ports.Stage{}, apperr.Conflict("funnel has no stages configured")
	}
	stages := make([]ports.Stage, len(funnel.Stages))
	copy(stages, funnel.Stages)
	sort.Slice(stages, func(i, j int) bool { return stages[i].Position < stages[j].Position })
	return stages[0], nil
}

// Update partially updates a lead's contact data, ownership and tags.
func (s *Service) Update(ctx context.Context, identity httpkit.Identity, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if err := s.authorizeOwnership(identity, current); err != nil {
		return transport.LeadResponse{}, err
	}

	params := repository.UpdateLeadParams{
		ID:           id,
		NomeCompleto: trimmed(req.NomeCompleto),
		Email:        trimmed(req.Email),
		TagIDs:       req.TagIDs,
	}
	if req.Telefone != nil {
		normalized := phone.NormalizeE164(*req.Telefone)
		digits := phone.Digits(normalized)
		params.Telefone = &normalized
		params.TelefoneDigits = &digits
	}
	if req.CorretorID.Set {
		if !identity.IsManagerTier() {
			return transport.LeadResponse{}, apperr.Forbidden("only managers may reassign leads")
		}
		if req.CorretorID.Value == nil {
			params.ClearCorretor = true
		} else {
			params.CorretorID = req.CorretorID.Value
		}
	}

	lead, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	reassigned := req.CorretorID.Set && req.CorretorID.Value != nil &&
		(current.CorretorID == nil || *current.CorretorID != *req.CorretorID.Value)
	if reassigned {
		s.bus.Publish(ctx, events.LeadAssigned{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     lead.ID,
			CorretorID: *req.CorretorID.Value,
			Automatic:  false,
		})
	}

	return transport.ToLeadResponse(lead), nil
}

// MoveStage moves a lead to another stage within its current funnel.
func (s *Service) MoveStage(ctx context.Context, identity httpkit.Identity, id uuid.UUID, req transport.MoveStageRequest) (transport.LeadResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if err := s.authorizeOwnership(identity, current); err != nil {
		return transport.LeadResponse{}, err
	}

	if current.StageID == req.FunnelStageID {
		return transport.ToLeadResponse(current), nil
	}

	lead, err := s.repo.UpdateStage(ctx, id, current.FunnelID, req.FunnelStageID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.log.StageMoved(lead.ID.String(), current.StageID.String(), lead.StageID.String())
	s.bus.Publish(ctx, events.LeadStageMoved{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		FunnelID:    lead.FunnelID,
		FromStageID: current.StageID,
		ToStageID:   lead.StageID,
		MovedBy:     identity.UserID(),
	})

	return transport.ToLeadResponse(lead), nil
}

// SetStatus marks a lead active, won or lost.
func (s *Service) SetStatus(ctx context.Context, identity httpkit.Identity, id uuid.UUID, req transport.SetStatusRequest) (transport.LeadResponse, error) {
	if !domain.IsKnownStatus(req.OverallStatus) {
		return transport.LeadResponse{}, apperr.Validation("unknown overall status")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if err := s.authorizeOwnership(identity, current); err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.repo.SetStatus(ctx, id, req.OverallStatus)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		CorretorID: lead.CorretorID,
		Status:     lead.OverallStatus,
	})

	return transport.ToLeadResponse(lead), nil
}

// GetByID retrieves a single lead.
func (s *Service) GetByID(ctx context.Context, identity httpkit.Identity, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if err := s.authorizeOwnership(identity, lead); err != nil {
		return transport.LeadResponse{}, err
	}
	return transport.ToLeadResponse(lead), nil
}

// ListParams narrows the lead listing. Brokers are always scoped to their
// own leads regardless of the CorretorID filter.
type ListParams struct {
	FunnelID    *uuid.UUID
	Status      *string
	CorretorID  *uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// List retrieves leads visible to the principal.
func (s *Service) List(ctx context.Context, identity httpkit.Identity, params ListParams) ([]transport.LeadResponse, error) {
	repoParams := repository.ListLeadsParams{
		FunnelID:    params.FunnelID,
		Status:      params.Status,
		CorretorID:  params.CorretorID,
		CreatedFrom: params.CreatedFrom,
		CreatedTo:   params.CreatedTo,
	}
	if !identity.IsManagerTier() {
		id := identity.UserID()
		repoParams.CorretorID = &id
	}

	leads, err := s.repo.List(ctx, repoParams)
	if err != nil {
		return nil, err
	}
	return transport.ToLeadResponses(leads), nil
}

// ListTags lists all tags available for board filtering.
func (s *Service) ListTags(ctx context.Context) ([]transport.TagResponse, error) {
	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]transport.TagResponse, 0, len(tags))
	for _, tag := range tags {
		out = append(out, transport.TagResponse{ID: tag.ID, Name: tag.Name, Color: tag.Color})
	}
	return out, nil
}

// authorizeOwnership rejects brokers acting on leads they do not own.
func (s *Service) authorizeOwnership(identity httpkit.Identity, lead repository.Lead) error {
	if identity.IsManagerTier() {
		return nil
	}
	if lead.CorretorID != nil && *lead.CorretorID == identity.UserID() {
		return nil
	}
	return apperr.Forbidden("lead belongs to another broker")
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
