package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"imobcrm_backend/internal/users/service"
	"imobcrm_backend/internal/users/transport"
	"imobcrm_backend/platform/httpkit"
	"imobcrm_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid user id"
)

// Handler handles HTTP requests for the broker directory.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new users handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts user routes. Reads are open to any authenticated
// user (the board needs the broker directory); writes are manager-tier.
func (h *Handler) RegisterRoutes(read *gin.RouterGroup, write *gin.RouterGroup) {
	read.GET("", h.List)
	read.GET("/:id", h.GetByID)

	write.POST("", h.Create)
	write.PUT("/:id", h.Update)
}

// List retrieves users, optionally filtered by role.
// GET /api/v1/users?role=corretor
func (h *Handler) List(c *gin.Context) {
	var role *string
	if raw := c.Query("role"); raw != "" {
		role = &raw
	}

	result, err := h.svc.List(c.Request.Context(), role)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID retrieves a user by ID.
// GET /api/v1/users/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create creates a user account.
// POST /api/v1/users
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// Update partially updates a user account.
// PUT /api/v1/users/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
