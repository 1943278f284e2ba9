package usage

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/internal/organizations"
	"github.com/helicone-dashboard/backend/pkg/response"
)

const maxRange = 366 * 24 * time.Hour

// Store runs the request aggregates.
type Store interface {
	CountRequests(ctx context.Context, orgID uuid.UUID, from, to time.Time) (int64, error)
	CountOverTime(ctx context.Context, orgID uuid.UUID, from, to time.Time, increment string) ([]Point, error)
	RateLimited(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]Point, error)
}

// OrgReader loads the organization to read its tier.
type OrgReader interface {
	GetByID(ctx context.Context, orgID uuid.UUID) (mo.Option[*models.Organization], error)
}

// Handler serves usage and request-volume routes.
type Handler struct {
	store  Store
	orgs   OrgReader
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a usage handler.
func NewHandler(store Store, orgs OrgReader, logger *zap.Logger) *Handler {
	return &Handler{store: store, orgs: orgs, logger: logger, now: time.Now}
}

// Usage handles GET /api/organization/:id/usage?month=YYYY-MM.
func (h *Handler) Usage(c *gin.Context) {
	now := h.now().UTC()
	month, err := ParseMonth(c.Query("month"), now)
	if err != nil {
		response.BadRequest(c, "month must be YYYY-MM")
		return
	}
	ctx := c.Request.Context()
	orgID := organizations.OrgID(c)

	found, err := h.orgs.GetByID(ctx, orgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	org, ok := found.Get()
	if !ok {
		response.NotFound(c, "Organization not found")
		return
	}
	count, err := h.store.CountRequests(ctx, orgID, month, month.AddDate(0, 1, 0))
	if err != nil {
		middleware.Log(c, h.logger).Error("count monthly requests", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, Summarize(org.Tier, org.Limits, count, month, now))
}

// parseRange reads from/to as RFC3339, defaulting to the last def.
func (h *Handler) parseRange(c *gin.Context, def time.Duration) (time.Time, time.Time, bool) {
	to := h.now().UTC()
	from := to.Add(-def)
	var err error
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			response.BadRequest(c, "to must be RFC3339")
			return from, to, false
		}
	}
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			response.BadRequest(c, "from must be RFC3339")
			return from, to, false
		}
	}
	if !from.Before(to) || to.Sub(from) > maxRange {
		response.BadRequest(c, "from must be before to and the range at most a year")
		return from, to, false
	}
	return from, to, true
}

// CountOverTime handles GET /api/organization/:id/requests/count_over_time.
func (h *Handler) CountOverTime(c *gin.Context) {
	increment := c.DefaultQuery("increment", IncrementDay)
	if !ValidIncrement(increment) {
		response.BadRequest(c, "increment must be hour, day or week")
		return
	}
	from, to, ok := h.parseRange(c, 30*24*time.Hour)
	if !ok {
		return
	}
	points, err := h.store.CountOverTime(c.Request.Context(), organizations.OrgID(c), from, to, increment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, points)
}

// RateLimit handles GET /api/organization/:id/rate_limit.
func (h *Handler) RateLimit(c *gin.Context) {
	from, to, ok := h.parseRange(c, 24*time.Hour)
	if !ok {
		return
	}
	points, err := h.store.RateLimited(c.Request.Context(), organizations.OrgID(c), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	var total int64
	for _, p := range points {
		total += p.Count
	}
	response.OK(c, gin.H{"total": total, "buckets": points})
}

// RegisterRoutes mounts usage routes on an /organization/:id member group.
func (h *Handler) RegisterRoutes(member *gin.RouterGroup) {
	member.GET("/usage", h.Usage)
	member.GET("/requests/count_over_time", h.CountOverTime)
	member.GET("/rate_limit", h.RateLimit)
}
