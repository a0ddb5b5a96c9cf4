package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"imobcrm_backend/internal/pipeline/service"
	"imobcrm_backend/platform/httpkit"
)

// Handler handles HTTP requests for the pipeline board.
type Handler struct {
	svc *service.Service
}

// New creates a new pipeline handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the board route.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/board", h.Board)
}

// Board renders per-stage lead buckets under the composite filter.
// GET /api/v1/pipeline/board
func (h *Handler) Board(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	query, ok := parseBoardQuery(c)
	if !ok {
		return
	}

	result, err := h.svc.Board(c.Request.Context(), identity, query)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func parseBoardQuery(c *gin.Context) (service.BoardQuery, bool) {
	query := service.BoardQuery{
		Search: c.Query("search"),
		Phone:  c.Query("phone"),
		Status: c.Query("overallStatus"),
	}

	parseUUID := func(name string) (*uuid.UUID, bool) {
		raw := c.Query(name)
		if raw == "" || raw == "all" {
			return nil, true
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid "+name+" filter", nil)
			return nil, false
		}
		return &id, true
	}
	parseTime := func(name string) (*time.Time, bool) {
		raw := c.Query(name)
		if raw == "" {
			return nil, true
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid "+name+" filter", nil)
			return nil, false
		}
		return &t, true
	}

	var ok bool
	if query.FunnelID, ok = parseUUID("funnelId"); !ok {
		return query, false
	}
	if query.CorretorID, ok = parseUUID("corretorId"); !ok {
		return query, false
	}
	if query.TagID, ok = parseUUID("tagId"); !ok {
		return query, false
	}
	if query.CreatedFrom, ok = parseTime("createdFrom"); !ok {
		return query, false
	}
	if query.CreatedTo, ok = parseTime("createdTo"); !ok {
		return query, false
	}

	return query, true
}
