package orgcontext

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/pkg/response"
)

// Handler exposes the organization context over HTTP.
type Handler struct {
	mgr    *Manager
	logger *zap.Logger
}

// NewHandler creates an org-context handler.
func NewHandler(mgr *Manager, logger *zap.Logger) *Handler {
	return &Handler{mgr: mgr, logger: logger}
}

// SetCurrentRequest is the body for POST /api/org_context/current.
type SetCurrentRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
}

// Get handles GET /api/org_context.
func (h *Handler) Get(c *gin.Context) {
	snap, err := h.mgr.Load(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		middleware.Log(c, h.logger).Error("load org context", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, snap)
}

// SetCurrent handles POST /api/org_context/current.
func (h *Handler) SetCurrent(c *gin.Context) {
	var body SetCurrentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "organization_id is required")
		return
	}
	snap, changed, err := h.mgr.SetCurrent(c.Request.Context(), middleware.UserID(c), body.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"changed": changed, "context": snap})
}

// Refetch handles POST /api/org_context/refetch.
func (h *Handler) Refetch(c *gin.Context) {
	snap, err := h.mgr.Refetch(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, snap)
}

// RegisterRoutes mounts the org-context routes on an authenticated group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	g := api.Group("/org_context")
	g.GET("", h.Get)
	g.POST("/current", h.SetCurrent)
	g.POST("/refetch", h.Refetch)
}
