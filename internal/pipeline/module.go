// Package pipeline provides the board projection module: per-stage lead
// buckets under a composite filter, plus the drag-drop commit machinery.
package pipeline

import (
	"context"

	"github.com/google/uuid"

	apphttp "imobcrm_backend/internal/http"

	leadrepo "imobcrm_backend/internal/leads/repository"
	"imobcrm_backend/internal/pipeline/dragdrop"
	"imobcrm_backend/internal/pipeline/handler"
	"imobcrm_backend/internal/pipeline/service"
	"imobcrm_backend/platform/logger"
)

// RollbackNotifier surfaces a reverted optimistic move to the lead's
// owner. The notification module provides the production implementation.
type RollbackNotifier interface {
	HandleStageMoveRolledBack(ctx context.Context, leadID uuid.UUID, cause error) error
}

// Module is the pipeline bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	controller *dragdrop.Controller
}

// NewModule creates and initializes the pipeline module. Lead and funnel
// data come from the owning modules' repositories; the drag-drop
// controller commits through the same lead repository and reports
// rollbacks to the notifier. A nil notifier keeps rollbacks log-only.
func NewModule(leads leadrepo.Repository, funnels service.FunnelSource, notifier RollbackNotifier, log *logger.Logger) *Module {
	svc := service.New(leads, funnels)
	h := handler.New(svc)
	ctrl := dragdrop.New(RemoteLeadStore{repo: leads}, log)

	m := &Module{
		handler:    h,
		service:    svc,
		controller: ctrl,
	}
	go m.forwardRollbacks(notifier, log)
	return m
}

// forwardRollbacks drains the controller's rollback channel into the
// notifier until the controller stops.
func (m *Module) forwardRollbacks(notifier RollbackNotifier, log *logger.Logger) {
	for {
		select {
		case moveErr := <-m.controller.Notifications():
			if notifier == nil {
				continue
			}
			if err := notifier.HandleStageMoveRolledBack(context.Background(), moveErr.LeadID, moveErr.Err); err != nil {
				log.Error("rollback notification failed", "leadId", moveErr.LeadID, "error", err)
			}
		case <-m.controller.Done():
			return
		}
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pipeline"
}

// Controller returns the drag-drop controller owning the board gesture
// state.
func (m *Module) Controller() *dragdrop.Controller {
	return m.controller
}

// RegisterRoutes mounts board routes on the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/pipeline")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

// RemoteLeadStore adapts the leads repository to dragdrop.RemoteStore, so
// an optimistic board move commits through the same stage-membership
// validation as the REST endpoint.
type RemoteLeadStore struct {
	repo leadrepo.Repository
}

func (r RemoteLeadStore) MoveStage(ctx context.Context, leadID, funnelID, stageID uuid.UUID) error {
	_, err := r.repo.UpdateStage(ctx, leadID, funnelID, stageID)
	return err
}
