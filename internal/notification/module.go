// Package notification provides the in-app notification bounded context
// module, fed by lead lifecycle events.
package notification

import (
	"context"

	"github.com/google/uuid"

	apphttp "imobcrm_backend/internal/http"

	"imobcrm_backend/internal/email"
	"imobcrm_backend/internal/events"
	leadrepo "imobcrm_backend/internal/leads/repository"
	"imobcrm_backend/internal/notification/handler"
	"imobcrm_backend/internal/notification/repository"
	"imobcrm_backend/internal/notification/service"
	userrepo "imobcrm_backend/internal/users/repository"
	"imobcrm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the notification bounded context module implementing
// http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the notification module and subscribes
// it to the lead lifecycle events it reacts to.
func NewModule(pool *pgxpool.Pool, users userrepo.Repository, leads leadrepo.Repository, sender email.Sender, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, userAdapter{users}, leadAdapter{leads}, sender, log)
	h := handler.New(svc)

	m := &Module{handler: h, service: svc}
	m.subscribe(bus, log)
	return m
}

func (m *Module) subscribe(bus events.Bus, log *logger.Logger) {
	bus.Subscribe("leads.lead.assigned", events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		ev, ok := event.(events.LeadAssigned)
		if !ok {
			log.Error("unexpected event payload", "event", event.EventName())
			return nil
		}
		return m.service.HandleLeadAssigned(ctx, ev)
	}))
	bus.Subscribe("leads.lead.status_changed", events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		ev, ok := event.(events.LeadStatusChanged)
		if !ok {
			log.Error("unexpected event payload", "event", event.EventName())
			return nil
		}
		return m.service.HandleLeadStatusChanged(ctx, ev)
	}))
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// Service returns the notification service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts notification routes on the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/notifications")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

// userAdapter narrows the users repository to the recipient lookup the
// service needs.
type userAdapter struct {
	repo userrepo.Repository
}

func (a userAdapter) GetUser(ctx context.Context, id uuid.UUID) (string, string, error) {
	user, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return "", "", err
	}
	return user.Nome, user.Email, nil
}

// leadAdapter narrows the leads repository to a display-name lookup.
type leadAdapter struct {
	repo leadrepo.Repository
}

func (a leadAdapter) GetLeadName(ctx context.Context, id uuid.UUID) (string, error) {
	lead, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return lead.NomeCompleto, nil
}

func (a leadAdapter) GetLeadOwner(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	lead, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return lead.CorretorID, nil
}
