package emaillogs

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/apperr"
	"github.com/helicone-dashboard/backend/pkg/response"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Lister reads delivery history.
type Lister interface {
	ListRecent(ctx context.Context, status string, limit int) ([]*models.EmailLog, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo Lister
}

// NewHandler creates an email logs handler.
func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /api/admin/email_logs?status=&limit=.
// Call after RequireAdmin so access is already validated.
func (h *Handler) List(c *gin.Context) {
	status := c.Query("status")
	if status != "" && status != models.EmailLogStatusSent && status != models.EmailLogStatusFailed {
		response.BadRequest(c, "status must be sent or failed")
		return
	}
	limit := defaultLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = min(n, maxLimit)
	}
	logs, err := h.repo.ListRecent(c.Request.Context(), status, limit)
	if err != nil {
		response.Error(c, apperr.Internal(err))
		return
	}
	response.OK(c, logs)
}
