// Package funnels provides the funnel configuration bounded context module.
// This file defines the module that encapsulates all funnels setup and route registration.
package funnels

import (
	apphttp "imobcrm_backend/internal/http"

	"imobcrm_backend/internal/funnels/handler"
	"imobcrm_backend/internal/funnels/repository"
	"imobcrm_backend/internal/funnels/service"
	"imobcrm_backend/platform/logger"
	"imobcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the funnels bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
}

// NewModule creates and initializes the funnels module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "funnels"
}

// Service returns the funnels service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the funnels repository for cross-module reads
// (lead intake resolves entry funnels through it).
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts funnels routes on the provided router context.
// Reads require authentication; writes require manager-tier roles.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	read := ctx.Protected.Group("/funnels")
	write := ctx.Manager.Group("/funnels")
	m.handler.RegisterRoutes(read, write)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
