package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	funnelrepo "imobcrm_backend/internal/funnels/repository"
	leadrepo "imobcrm_backend/internal/leads/repository"
	"imobcrm_backend/internal/pipeline/board"
	"imobcrm_backend/internal/pipeline/transport"
	leadtransport "imobcrm_backend/internal/leads/transport"
	"imobcrm_backend/platform/apperr"
	"imobcrm_backend/platform/httpkit"
)

// LeadSource loads the lead working set for the board.
type LeadSource interface {
	List(ctx context.Context, params leadrepo.ListLeadsParams) ([]leadrepo.Lead, error)
}

// FunnelSource resolves the funnel whose board is rendered.
type FunnelSource interface {
	GetFunnelByID(ctx context.Context, id uuid.UUID) (funnelrepo.Funnel, error)
	GetDefaultEntryFunnel(ctx context.Context) (funnelrepo.Funnel, error)
	GetFirstFunnel(ctx context.Context) (funnelrepo.Funnel, error)
}

// Service renders the pipeline board: load, filter, group.
type Service struct {
	leads   LeadSource
	funnels FunnelSource
}

func New(leads LeadSource, funnels FunnelSource) *Service {
	return &Service{leads: leads, funnels: funnels}
}

// BoardQuery carries the funnel selection and the composite filter. Every
// field is optional; an empty query renders the default funnel unfiltered.
type BoardQuery struct {
	FunnelID    *uuid.UUID
	Search      string
	Phone       string
	Status      string
	CorretorID  *uuid.UUID
	TagID       *uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Board renders the per-stage buckets for the resolved funnel. Brokers
// only see their own leads; the status and date predicates push down to
// the query, the rest are applied in memory.
func (s *Service) Board(ctx context.Context, identity httpkit.Identity, query BoardQuery) (transport.BoardResponse, error) {
	funnel, err := s.resolveFunnel(ctx, query.FunnelID)
	if err != nil {
		return transport.BoardResponse{}, err
	}

	listParams := leadrepo.ListLeadsParams{FunnelID: &funnel.ID}
	if !identity.IsManagerTier() {
		id := identity.UserID()
		listParams.CorretorID = &id
	}

	leads, err := s.leads.List(ctx, listParams)
	if err != nil {
		return transport.BoardResponse{}, err
	}

	filter := board.Filter{Predicates: []board.Predicate{
		board.TextMatch{Query: query.Search},
		board.PhoneDigits{Query: query.Phone},
		board.StatusEquals{Status: query.Status},
		board.BrokerEquals{CorretorID: query.CorretorID},
		board.DateRange{From: query.CreatedFrom, To: query.CreatedTo},
		board.TagMembership{TagID: query.TagID},
	}}
	visible := board.VisibleLeads(leads, filter)

	stages := make([]board.Stage, len(funnel.Stages))
	copy(stages, funnel.Stages)
	sort.Slice(stages, func(i, j int) bool { return stages[i].Position < stages[j].Position })

	buckets := board.Group(visible, stages)

	columns := make([]transport.StageColumn, 0, len(buckets))
	for _, bucket := range buckets {
		columns = append(columns, transport.StageColumn{
			ID:    bucket.Stage.ID,
			Name:  bucket.Stage.Name,
			Order: bucket.Stage.Position,
			Color: bucket.Stage.Color,
			Leads: leadtransport.ToLeadResponses(bucket.Leads),
		})
	}

	return transport.BoardResponse{
		FunnelID:   funnel.ID,
		FunnelName: funnel.Name,
		Stages:     columns,
	}, nil
}

func (s *Service) resolveFunnel(ctx context.Context, explicit *uuid.UUID) (funnelrepo.Funnel, error) {
	if explicit != nil {
		return s.funnels.GetFunnelByID(ctx, *explicit)
	}

	funnel, err := s.funnels.GetDefaultEntryFunnel(ctx)
	if err == nil {
		return funnel, nil
	}
	if apperr.GetKind(err) != apperr.KindNotFound {
		return funnelrepo.Funnel{}, err
	}

	funnel, err = s.funnels.GetFirstFunnel(ctx)
	if err == nil {
		return funnel, nil
	}
	if apperr.GetKind(err) == apperr.KindNotFound {
		return funnelrepo.Funnel{}, apperr.Conflict("no funnel configured")
	}
	return funnelrepo.Funnel{}, err
}
