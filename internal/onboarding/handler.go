package onboarding

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/internal/organizations"
	"github.com/helicone-dashboard/backend/pkg/response"
)

// Store reads and writes the wizard state.
type Store interface {
	GetByID(ctx context.Context, orgID uuid.UUID) (mo.Option[*models.Organization], error)
	UpdateOnboarding(ctx context.Context, orgID uuid.UUID, status models.OnboardingStatus, done bool) error
}

// Handler serves the onboarding wizard.
type Handler struct {
	store Store
}

// NewHandler creates an onboarding handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// AdvanceRequest is the body for POST /api/organization/:id/onboarding.
type AdvanceRequest struct {
	Action string `json:"action" binding:"required,oneof=next back"`
}

func (h *Handler) load(c *gin.Context) (State, bool) {
	found, err := h.store.GetByID(c.Request.Context(), organizations.OrgID(c))
	if err != nil {
		response.Error(c, err)
		return State{}, false
	}
	org, ok := found.Get()
	if !ok {
		response.NotFound(c, "Organization not found")
		return State{}, false
	}
	return FromOrganization(org), true
}

// Get handles GET /api/organization/:id/onboarding.
func (h *Handler) Get(c *gin.Context) {
	state, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, state)
}

// Advance handles POST /api/organization/:id/onboarding.
func (h *Handler) Advance(c *gin.Context) {
	var body AdvanceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "action must be next or back")
		return
	}
	state, ok := h.load(c)
	if !ok {
		return
	}
	next, err := Advance(state, body.Action)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	status := models.OnboardingStatus{Step: next.Step}
	if err := h.store.UpdateOnboarding(c.Request.Context(), organizations.OrgID(c), status, next.HasOnboarded); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, next)
}

// RegisterRoutes mounts the wizard. Any member may read it; advancing needs mutate access.
func (h *Handler) RegisterRoutes(member, mutate *gin.RouterGroup) {
	member.GET("/onboarding", h.Get)
	mutate.POST("/onboarding", h.Advance)
}
