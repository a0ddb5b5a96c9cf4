// Package leads provides the lead management bounded context module:
// intake, ownership, pipeline progression and status.
package leads

import (
	apphttp "imobcrm_backend/internal/http"

	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/leads/handler"
	"imobcrm_backend/internal/leads/ports"
	"imobcrm_backend/internal/leads/repository"
	"imobcrm_backend/internal/leads/service"
	"imobcrm_backend/platform/config"
	"imobcrm_backend/platform/logger"
	"imobcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
	intake  config.IntakeConfig
}

// NewModule creates and initializes the leads module. FunnelReader and
// Assigner come from the funnels and roulette modules respectively.
func NewModule(pool *pgxpool.Pool, funnels ports.FunnelReader, assigner ports.Assigner, bus events.Bus, intake config.IntakeConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, funnels, assigner, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
		intake:  intake,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the leads service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the leads repository for cross-module reads
// (the pipeline board loads its working set through it).
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts client routes. The webhook intake endpoint is
// mounted on the v1 group behind the intake API key; everything else
// requires a bearer credential.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	protected := ctx.Protected.Group("/clients")
	public := ctx.V1.Group("/clients", IntakeKeyAuth(m.intake))
	m.handler.RegisterRoutes(protected, public)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
