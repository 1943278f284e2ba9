package providerkeys

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/internal/organizations"
	"github.com/helicone-dashboard/backend/pkg/apperr"
	"github.com/helicone-dashboard/backend/pkg/database"
	"github.com/helicone-dashboard/backend/pkg/response"
	"github.com/helicone-dashboard/backend/pkg/utils"
)

// Store persists sealed provider keys.
type Store interface {
	List(ctx context.Context, orgID uuid.UUID) ([]models.ProviderKey, error)
	Create(ctx context.Context, k *models.ProviderKey, sealed []byte) error
	Sealed(ctx context.Context, orgID, keyID uuid.UUID) (mo.Option[[]byte], error)
	SoftDelete(ctx context.Context, orgID, keyID uuid.UUID) (bool, error)
}

// Handler serves /api/organization/:id/provider_keys.
type Handler struct {
	store  Store
	vault  *Vault
	logger *zap.Logger
}

// NewHandler creates a provider key handler.
func NewHandler(store Store, vault *Vault, logger *zap.Logger) *Handler {
	return &Handler{store: store, vault: vault, logger: logger}
}

// CreateProviderKeyRequest is the body for POST /api/organization/:id/provider_keys.
type CreateProviderKeyRequest struct {
	ProviderName    string `json:"provider_name" binding:"required"`
	ProviderKeyName string `json:"provider_key_name" binding:"required"`
	ProviderKey     string `json:"provider_key" binding:"required"`
}

// List handles GET /api/organization/:id/provider_keys.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context(), organizations.OrgID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /api/organization/:id/provider_keys.
func (h *Handler) Create(c *gin.Context) {
	var body CreateProviderKeyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "provider_name, provider_key_name and provider_key are required")
		return
	}
	sealed, err := h.vault.Seal(body.ProviderKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	k := models.ProviderKey{
		OrgID:           organizations.OrgID(c),
		ProviderName:    body.ProviderName,
		ProviderKeyName: body.ProviderKeyName,
		MaskedKey:       utils.MaskSecret(body.ProviderKey),
	}
	if err := h.store.Create(c.Request.Context(), &k, sealed); err != nil {
		if database.IsUniqueViolation(err) {
			response.Error(c, apperr.Conflict("A provider key with this name already exists"))
			return
		}
		middleware.Log(c, h.logger).Error("create provider key", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.Created(c, k)
}

func keyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		response.BadRequest(c, "invalid keyId")
		return uuid.Nil, false
	}
	return id, true
}

// Reveal handles GET /api/organization/:id/provider_keys/:keyId/reveal.
func (h *Handler) Reveal(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}
	found, err := h.store.Sealed(c.Request.Context(), organizations.OrgID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	sealed, ok := found.Get()
	if !ok {
		response.NotFound(c, "Provider key not found")
		return
	}
	plain, err := h.vault.Open(sealed)
	if err != nil {
		middleware.Log(c, h.logger).Error("open provider key", zap.String("key_id", id.String()), zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id, "provider_key": plain})
}

// Delete handles DELETE /api/organization/:id/provider_keys/:keyId.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}
	found, err := h.store.SoftDelete(c.Request.Context(), organizations.OrgID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.NotFound(c, "Provider key not found")
		return
	}
	response.OK(c, nil)
}

// RegisterRoutes mounts provider key routes on /organization/:id groups.
func (h *Handler) RegisterRoutes(member, mutate *gin.RouterGroup) {
	member.GET("/provider_keys", h.List)
	mutate.POST("/provider_keys", h.Create)
	mutate.GET("/provider_keys/:keyId/reveal", h.Reveal)
	mutate.DELETE("/provider_keys/:keyId", h.Delete)
}
