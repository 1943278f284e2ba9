package alerts

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/internal/organizations"
	"github.com/helicone-dashboard/backend/pkg/response"
)

const defaultHistoryLimit = 100

// Store is what the HTTP handler needs from persistence.
type Store interface {
	List(ctx context.Context, orgID uuid.UUID) ([]models.Alert, error)
	Create(ctx context.Context, a *models.Alert) error
	SoftDelete(ctx context.Context, orgID, alertID uuid.UUID) (bool, error)
	History(ctx context.Context, orgID uuid.UUID, limit int) ([]models.AlertHistory, error)
}

// Handler serves /api/organization/:id/alerts.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an alerts handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// List handles GET /api/organization/:id/alerts.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context(), organizations.OrgID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /api/organization/:id/alerts.
func (h *Handler) Create(c *gin.Context) {
	var body CreateAlertRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	a := models.Alert{
		OrgID:               organizations.OrgID(c),
		Name:                body.Name,
		Metric:              body.Metric,
		Threshold:           body.Threshold,
		TimeWindowMs:        body.TimeWindowMs,
		MinimumRequestCount: body.MinimumRequestCount,
		Emails:              body.Emails,
		SlackChannels:       body.SlackChannels,
	}
	if err := h.store.Create(c.Request.Context(), &a); err != nil {
		middleware.Log(c, h.logger).Error("create alert", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.Created(c, a)
}

// Delete handles DELETE /api/organization/:id/alerts/:alertId.
func (h *Handler) Delete(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("alertId"))
	if err != nil {
		response.BadRequest(c, "invalid alertId")
		return
	}
	found, err := h.store.SoftDelete(c.Request.Context(), organizations.OrgID(c), alertID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.NotFound(c, "Alert not found")
		return
	}
	response.OK(c, nil)
}

// History handles GET /api/organization/:id/alerts/history.
func (h *Handler) History(c *gin.Context) {
	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			response.BadRequest(c, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}
	list, err := h.store.History(c.Request.Context(), organizations.OrgID(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// RegisterRoutes mounts alert routes on /organization/:id groups.
func (h *Handler) RegisterRoutes(member, mutate *gin.RouterGroup) {
	member.GET("/alerts", h.List)
	member.GET("/alerts/history", h.History)
	mutate.POST("/alerts", h.Create)
	mutate.DELETE("/alerts/:alertId", h.Delete)
}
