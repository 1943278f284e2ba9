package stats

import (
	"github.com/gin-gonic/gin"

	"github.com/helicone-dashboard/backend/pkg/response"
)

// Handler serves GET /api/stats.
type Handler struct {
	svc *Service
}

// NewHandler creates a stats handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Get handles GET /api/stats. Admin access is enforced by route middleware.
func (h *Handler) Get(c *gin.Context) {
	d, err := h.svc.Collect(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, d)
}
