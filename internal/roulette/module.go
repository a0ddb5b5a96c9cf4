// Package roulette provides the lead-routing bounded context module:
// roulette configuration, window resolution and round-robin rotation.
package roulette

import (
	"imobcrm_backend/internal/events"
	apphttp "imobcrm_backend/internal/http"
	"imobcrm_backend/internal/roulette/handler"
	"imobcrm_backend/internal/roulette/repository"
	"imobcrm_backend/internal/roulette/service"
	"imobcrm_backend/platform/logger"
	"imobcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the roulette bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the roulette module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "roulette"
}

// Service returns the roulette service. Lead intake resolves automatic
// assignment through it.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the roulette repository for cross-module reads
// (window-audit scheduling resolves validUntil through it).
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts roulette routes on the provided router context.
// Roulette configuration is manager-tier only.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Manager.Group("/roletas")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
