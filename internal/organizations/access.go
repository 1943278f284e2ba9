package organizations

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/response"
)

const (
	// ContextOrganizationID is the context key for the organization resolved from the :id param.
	ContextOrganizationID = "organization_id"
	// ContextOrgRole is the caller's role in that organization.
	ContextOrgRole = "org_role"
)

// Access levels for RequireOrgAccess.
const (
	AccessMember = iota
	AccessMutate
)

// RequireOrgAccess resolves :id and checks the caller's membership. Call after Session.
func RequireOrgAccess(svc *Service, level int) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid organization id")
			return
		}
		userID := middleware.UserID(c)
		ctx := c.Request.Context()

		role, err := svc.Role(ctx, orgID, userID)
		if err != nil {
			response.Error(c, err)
			return
		}
		switch level {
		case AccessMutate:
			if !models.CanMutate(role) {
				ok, err := svc.CanMutate(ctx, orgID, userID)
				if err != nil {
					response.Error(c, err)
					return
				}
				if !ok {
					response.Forbidden(c, "User does not have access to mutate organization")
					return
				}
			}
		default:
			if role == "" {
				response.Forbidden(c, "No access to org")
				return
			}
		}
		c.Set(ContextOrganizationID, orgID)
		c.Set(ContextOrgRole, role)
		c.Next()
	}
}

// OrgID returns the organization resolved by RequireOrgAccess.
func OrgID(c *gin.Context) uuid.UUID {
	return c.MustGet(ContextOrganizationID).(uuid.UUID)
}
