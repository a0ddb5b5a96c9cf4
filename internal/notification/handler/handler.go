package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"imobcrm_backend/internal/notification/service"
	"imobcrm_backend/platform/httpkit"
)

const msgInvalidID = "invalid notification id"

// Handler handles HTTP requests for in-app notifications.
type Handler struct {
	svc *service.Service
}

// New creates a new notification handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts notification routes.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.PATCH("/:id/read", h.MarkRead)
	group.POST("/read-all", h.MarkAllRead)
}

// List retrieves the authenticated user's notifications.
// GET /api/v1/notifications?unread=true
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	unreadOnly := c.Query("unread") == "true"
	result, err := h.svc.List(c.Request.Context(), identity.UserID(), unreadOnly)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// MarkRead marks one notification read.
// PATCH /api/v1/notifications/:id/read
func (h *Handler) MarkRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.MarkRead(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// MarkAllRead marks every unread notification read.
// POST /api/v1/notifications/read-all
func (h *Handler) MarkAllRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.MarkAllRead(c.Request.Context(), identity.UserID()); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
