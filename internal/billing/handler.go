package billing

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/pkg/response"
)

const maxWebhookBody = 64 << 10

// Handler serves the billing routes.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a billing handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CheckoutRequest is the body for POST /api/stripe/checkout.
type CheckoutRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
	Tier           string    `json:"tier" binding:"required"`
}

// PortalRequest is the body for POST /api/stripe/portal.
type PortalRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
}

// Checkout handles POST /api/stripe/checkout.
func (h *Handler) Checkout(c *gin.Context) {
	var body CheckoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "organization_id and tier are required")
		return
	}
	url, err := h.svc.Checkout(c.Request.Context(), middleware.UserID(c), middleware.UserEmail(c), body.OrganizationID, body.Tier)
	if err != nil {
		middleware.Log(c, h.logger).Warn("checkout failed", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"url": url})
}

// Portal handles POST /api/stripe/portal.
func (h *Handler) Portal(c *gin.Context) {
	var body PortalRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "organization_id is required")
		return
	}
	url, err := h.svc.Portal(c.Request.Context(), middleware.UserID(c), body.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"url": url})
}

// Webhook handles POST /webhooks/stripe. It is not behind the session middleware.
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "unreadable body")
		return
	}
	if err := h.svc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			response.BadRequest(c, err.Error())
			return
		}
		middleware.Log(c, h.logger).Error("apply webhook", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"received": true})
}

// RegisterRoutes mounts the authenticated billing routes.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/stripe/checkout", h.Checkout)
	api.POST("/stripe/portal", h.Portal)
}
