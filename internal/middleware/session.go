package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/helicone-dashboard/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// SessionValidator resolves a session token to its user.
type SessionValidator interface {
	ValidateSession(token string) (uuid.UUID, string, error)
}

// Session authenticates the request from a bearer token or the session cookie.
func Session(validator SessionValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token, _ = c.Cookie(cookieName)
		}
		if token == "" {
			response.Unauthorized(c, "Unauthorized")
			return
		}
		userID, email, err := validator.ValidateSession(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired session")
			return
		}
		c.Set(ContextUserID, userID)
		c.Set(ContextUserEmail, email)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// UserID returns the authenticated user. It panics outside Session.
func UserID(c *gin.Context) uuid.UUID {
	return c.MustGet(ContextUserID).(uuid.UUID)
}

// UserEmail returns the authenticated user's email.
func UserEmail(c *gin.Context) string {
	return c.GetString(ContextUserEmail)
}
