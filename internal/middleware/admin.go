package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/helicone-dashboard/backend/pkg/response"
)

// RequireAdmin allows only dashboard administrators.
func RequireAdmin(isAdmin func(email string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := UserEmail(c)
		if email == "" {
			response.Unauthorized(c, "missing user context")
			return
		}
		if !isAdmin(email) {
			response.Forbidden(c, "Unauthorized")
			return
		}
		c.Next()
	}
}
