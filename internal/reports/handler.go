package reports

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/internal/organizations"
	"github.com/helicone-dashboard/backend/internal/usage"
	"github.com/helicone-dashboard/backend/pkg/response"
)

// Handler serves report generation.
type Handler struct {
	gen    *Generator
	logger *zap.Logger
}

// NewHandler creates a reports handler. gen may be nil when object storage is not configured.
func NewHandler(gen *Generator, logger *zap.Logger) *Handler {
	return &Handler{gen: gen, logger: logger}
}

// MonthlyUsage handles POST /api/organization/:id/reports/usage?month=YYYY-MM.
func (h *Handler) MonthlyUsage(c *gin.Context) {
	if h.gen == nil {
		response.Internal(c, "report storage is not configured")
		return
	}
	month, err := usage.ParseMonth(c.Query("month"), time.Now().UTC())
	if err != nil {
		response.BadRequest(c, "month must be YYYY-MM")
		return
	}
	report, err := h.gen.MonthlyUsage(c.Request.Context(), organizations.OrgID(c), month)
	if err != nil {
		middleware.Log(c, h.logger).Error("generate usage report", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// RegisterRoutes mounts report routes on an /organization/:id member group.
func (h *Handler) RegisterRoutes(member *gin.RouterGroup) {
	member.POST("/reports/usage", h.MonthlyUsage)
}
