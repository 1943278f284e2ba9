package organizations

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/response"
)

// Handler handles organization HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateOrganizationRequest is the body for POST /api/organization/create.
type CreateOrganizationRequest struct {
	Name             string            `json:"name" binding:"required"`
	Color            string            `json:"color"`
	Icon             string            `json:"icon"`
	Tier             string            `json:"tier"`
	OrganizationType string            `json:"organization_type"`
	ResellerID       *uuid.UUID        `json:"reseller_id"`
	Limits           *models.OrgLimits `json:"limits"`
}

// UpdateOrganizationRequest is the body for POST /api/organization/:id/update.
type UpdateOrganizationRequest struct {
	Name   *string           `json:"name"`
	Color  *string           `json:"color"`
	Icon   *string           `json:"icon"`
	Limits *models.OrgLimits `json:"limits"`
}

// AddMemberRequest is the body for POST /api/organization/:id/add_member.
type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UpdateMemberRequest is the body for POST /api/organization/:id/update_member.
type UpdateMemberRequest struct {
	MemberID uuid.UUID `json:"memberId" binding:"required"`
	Role     string    `json:"role" binding:"required"`
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /api/organization.
func (h *Handler) List(c *gin.Context) {
	orgs, err := h.svc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		middleware.Log(c, h.logger).Error("list organizations", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, orgs)
}

// Get handles GET /api/organization/:id.
func (h *Handler) Get(c *gin.Context) {
	orgID, ok := parseID(c, "id")
	if !ok {
		return
	}
	org, err := h.svc.Get(c.Request.Context(), orgID, middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, org)
}

// Create handles POST /api/organization/create.
func (h *Handler) Create(c *gin.Context) {
	var body CreateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	org, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), CreateParams{
		Name:             body.Name,
		Color:            body.Color,
		Icon:             body.Icon,
		Tier:             body.Tier,
		OrganizationType: body.OrganizationType,
		ResellerID:       body.ResellerID,
		Limits:           body.Limits,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, org.ID)
}

// EnsurePersonal handles POST /api/organization/ensure_personal.
func (h *Handler) EnsurePersonal(c *gin.Context) {
	id, created, err := h.svc.EnsurePersonal(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		middleware.Log(c, h.logger).Error("ensure personal organization", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id, "created": created})
}

// Update handles POST /api/organization/:id/update.
func (h *Handler) Update(c *gin.Context) {
	orgID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	err := h.svc.Update(c.Request.Context(), orgID, middleware.UserID(c), UpdateInput{
		Name:   body.Name,
		Color:  body.Color,
		Icon:   body.Icon,
		Limits: body.Limits,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil)
}

// Delete handles DELETE /api/organization/:id.
func (h *Handler) Delete(c *gin.Context) {
	orgID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), orgID, middleware.UserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil)
}

// AddMember handles POST /api/organization/:id/add_member.
func (h *Handler) AddMember(c *gin.Context) {
	orgID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body AddMemberRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user, err := h.svc.AddMember(c.Request.Context(), orgID, middleware.UserID(c), body.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user.ID)
}

// ListMembers handles GET /api/organization/:id/members.
func (h *Handler) ListMembers(c *gin.Context) {
	orgID, ok := parseID(c, "id")
	if !ok {
		return
	}
	members, err := h.svc.ListMembers(c.Request.Context(), orgID, middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, members)
}

// UpdateMember handles POST /api/organization/:id/update_member.
func (h *Handler) UpdateMember(c *gin.Context) {
	orgID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body UpdateMemberRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.UpdateMember(c.Request.Context(), orgID, middleware.UserID(c), body.MemberID, body.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil)
}

// RemoveMember handles DELETE /api/organization/:id/remove_member?memberId=.
func (h *Handler) RemoveMember(c *gin.Context) {
	orgID, ok := parseID(c, "id")
	if !ok {
		return
	}
	memberID, err := uuid.Parse(c.Query("memberId"))
	if err != nil {
		response.BadRequest(c, "invalid memberId")
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), orgID, middleware.UserID(c), memberID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil)
}

// Owner handles GET /api/organization/:id/owner.
func (h *Handler) Owner(c *gin.Context) {
	orgID, ok := parseID(c, "id")
	if !ok {
		return
	}
	owners, err := h.svc.Owner(c.Request.Context(), orgID, middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, owners)
}

// ListCustomers handles GET /api/organization/reseller/:resellerId.
func (h *Handler) ListCustomers(c *gin.Context) {
	resellerID, ok := parseID(c, "resellerId")
	if !ok {
		return
	}
	orgs, err := h.svc.ListCustomers(c.Request.Context(), resellerID, middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, orgs)
}

// RegisterRoutes mounts the organization routes on an authenticated group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	org := api.Group("/organization")
	org.GET("", h.List)
	org.POST("/create", h.Create)
	org.POST("/ensure_personal", h.EnsurePersonal)
	org.GET("/reseller/:resellerId", h.ListCustomers)
	org.GET("/:id", h.Get)
	org.DELETE("/:id", h.Delete)
	org.POST("/:id/update", h.Update)
	org.POST("/:id/add_member", h.AddMember)
	org.GET("/:id/members", h.ListMembers)
	org.POST("/:id/update_member", h.UpdateMember)
	org.DELETE("/:id/remove_member", h.RemoveMember)
	org.GET("/:id/owner", h.Owner)
}
