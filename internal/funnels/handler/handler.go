package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"imobcrm_backend/internal/funnels/service"
	"imobcrm_backend/internal/funnels/transport"
	"imobcrm_backend/platform/httpkit"
	"imobcrm_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid funnel id"
	msgInvalidStageID   = "invalid stage id"
)

// Handler handles HTTP requests for funnels and stages.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new funnels handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts funnel routes. Reads are open to any authenticated
// user; writes require manager-tier roles and are mounted by the module.
func (h *Handler) RegisterRoutes(read *gin.RouterGroup, write *gin.RouterGroup) {
	read.GET("", h.ListFunnels)
	read.GET("/:id", h.GetFunnelByID)

	write.POST("", h.CreateFunnel)
	write.PUT("/:id", h.UpdateFunnel)
	write.DELETE("/:id", h.DeleteFunnel)
	write.POST("/:id/stages", h.CreateStage)
	write.PUT("/stages/:stageId", h.UpdateStage)
	write.DELETE("/stages/:stageId", h.DeleteStage)
}

// ListFunnels retrieves all funnels with stages.
// GET /api/v1/funnels
func (h *Handler) ListFunnels(c *gin.Context) {
	result, err := h.svc.ListFunnels(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetFunnelByID retrieves a funnel by ID.
// GET /api/v1/funnels/:id
func (h *Handler) GetFunnelByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetFunnelByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateFunnel creates a funnel with its initial stages.
// POST /api/v1/funnels
func (h *Handler) CreateFunnel(c *gin.Context) {
	var req transport.CreateFunnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.CreateFunnel(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// UpdateFunnel partially updates a funnel.
// PUT /api/v1/funnels/:id
func (h *Handler) UpdateFunnel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateFunnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpdateFunnel(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeleteFunnel deletes a funnel.
// DELETE /api/v1/funnels/:id
func (h *Handler) DeleteFunnel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.DeleteFunnel(c.Request.Context(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateStage adds a stage to a funnel.
// POST /api/v1/funnels/:id/stages
func (h *Handler) CreateStage(c *gin.Context) {
	funnelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.CreateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.CreateStage(c.Request.Context(), funnelID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// UpdateStage partially updates a stage.
// PUT /api/v1/funnels/stages/:stageId
func (h *Handler) UpdateStage(c *gin.Context) {
	stageID, err := uuid.Parse(c.Param("stageId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidStageID, nil)
		return
	}

	var req transport.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpdateStage(c.Request.Context(), stageID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeleteStage deletes a stage.
// DELETE /api/v1/funnels/stages/:stageId
func (h *Handler) DeleteStage(c *gin.Context) {
	stageID, err := uuid.Parse(c.Param("stageId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidStageID, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.DeleteStage(c.Request.Context(), stageID)) {
		return
	}
	c.Status(http.StatusNoContent)
}
