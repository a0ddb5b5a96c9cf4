// Package users provides the broker directory bounded context module.
package users

import (
	"context"
	"time"

	apphttp "imobcrm_backend/internal/http"

	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/users/cache"
	"imobcrm_backend/internal/users/handler"
	"imobcrm_backend/internal/users/repository"
	"imobcrm_backend/internal/users/service"
	"imobcrm_backend/platform/logger"
	"imobcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module is the users bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
}

// NewModule creates and initializes the users module. The redis client may
// be nil; lead counts then bypass the cache.
func NewModule(pool *pgxpool.Pool, redisClient *redis.Client, leadCountTTL time.Duration, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	counts := cache.NewLeadCounts(redisClient, leadCountTTL)
	svc := service.New(repo, counts, log)
	h := handler.New(svc, val)

	m := &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
	m.subscribe(bus)
	return m
}

// subscribe invalidates cached lead counts whenever a lead changes hands
// or status, so the directory never shows counts a full TTL stale.
func (m *Module) subscribe(bus events.Bus) {
	invalidate := events.HandlerFunc(func(ctx context.Context, _ events.Event) error {
		m.service.InvalidateLeadCounts(ctx)
		return nil
	})
	bus.Subscribe("leads.lead.created", invalidate)
	bus.Subscribe("leads.lead.assigned", invalidate)
	bus.Subscribe("leads.lead.status_changed", invalidate)
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "users"
}

// Service returns the users service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the users repository for cross-module reads
// (notifications resolve recipients through it).
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts user routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	read := ctx.Protected.Group("/users")
	write := ctx.Manager.Group("/users")
	m.handler.RegisterRoutes(read, write)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
