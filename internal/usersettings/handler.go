package usersettings

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/apperr"
	"github.com/helicone-dashboard/backend/pkg/response"
)

// Store reads and writes user settings.
type Store interface {
	Ensure(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)
	UpdateRequestLimit(ctx context.Context, userID uuid.UUID, limit int64) (*models.UserSettings, error)
}

// Handler serves /api/user_settings.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a user settings handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// UpdateRequest is the body for POST /api/user_settings.
type UpdateRequest struct {
	RequestLimit *int64 `json:"request_limit" binding:"required"`
}

// Get handles GET /api/user_settings.
func (h *Handler) Get(c *gin.Context) {
	s, err := h.store.Ensure(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		middleware.Log(c, h.logger).Error("load user settings", zap.Error(err))
		response.Error(c, apperr.Internal(err))
		return
	}
	response.OK(c, s)
}

// Update handles POST /api/user_settings.
func (h *Handler) Update(c *gin.Context) {
	var body UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "request_limit is required")
		return
	}
	if *body.RequestLimit < 0 {
		response.BadRequest(c, "request_limit must not be negative")
		return
	}
	s, err := h.store.UpdateRequestLimit(c.Request.Context(), middleware.UserID(c), *body.RequestLimit)
	if err != nil {
		middleware.Log(c, h.logger).Error("update user settings", zap.Error(err))
		response.Error(c, apperr.Internal(err))
		return
	}
	response.OK(c, s)
}

// RegisterRoutes mounts the settings routes on an authenticated group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/user_settings", h.Get)
	api.POST("/user_settings", h.Update)
}
