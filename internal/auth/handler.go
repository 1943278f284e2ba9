package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/response"
)

// MagicLinkRequest is the body for POST /auth/magic_link.
type MagicLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyRequest is the body for POST /auth/verify.
type VerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Token string `json:"token" binding:"required"`
}

// TokenResponse is returned after a successful sign-in.
type TokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc    *Service
	cookie CookieOptions
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(svc *Service, cookie CookieOptions, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, cookie: cookie, logger: logger}
}

// SendMagicLink handles POST /auth/magic_link. It always answers OK so
// the endpoint cannot be used to probe for accounts.
func (h *Handler) SendMagicLink(c *gin.Context) {
	var req MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.SendMagicLink(c.Request.Context(), req.Email); err != nil {
		middleware.Log(c, h.logger).Error("send magic link", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"sent": true})
}

// Verify handles POST /auth/verify and sets the session cookie.
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	token, user, err := h.svc.Verify(c.Request.Context(), req.Email, req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.svc.Sessions().TTL().Seconds()), "/", "", h.cookie.Secure, true)
	response.OK(c, TokenResponse{Token: token, User: user})
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	response.OK(c, gin.H{"signed_out": true})
}

// Me handles GET /api/me.
func (h *Handler) Me(c *gin.Context) {
	user, err := h.svc.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}
