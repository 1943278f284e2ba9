package keys

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/internal/organizations"
	"github.com/helicone-dashboard/backend/pkg/response"
)

// Store persists API keys.
type Store interface {
	List(ctx context.Context, orgID uuid.UUID) ([]models.APIKey, error)
	Create(ctx context.Context, k *models.APIKey, hash string) error
	Rename(ctx context.Context, orgID, keyID uuid.UUID, name string) (bool, error)
	SoftDelete(ctx context.Context, orgID, keyID uuid.UUID) (bool, error)
}

// Handler serves /api/organization/:id/keys.
type Handler struct {
	store    Store
	generate func() (string, error)
	logger   *zap.Logger
}

// NewHandler creates an API key handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, generate: Generate, logger: logger}
}

// CreateKeyRequest is the body for POST /api/organization/:id/keys.
type CreateKeyRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Permissions string `json:"permissions"`
}

// RenameKeyRequest is the body for PATCH /api/organization/:id/keys/:keyId.
type RenameKeyRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

// CreatedKey is returned once; the plaintext key cannot be read again.
type CreatedKey struct {
	models.APIKey
	Key string `json:"api_key"`
}

func validPermission(p string) bool {
	switch p {
	case models.KeyPermissionReadWrite, models.KeyPermissionRead, models.KeyPermissionWrite:
		return true
	}
	return false
}

// List handles GET /api/organization/:id/keys.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context(), organizations.OrgID(c))
	if err != nil {
		middleware.Log(c, h.logger).Error("list api keys", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /api/organization/:id/keys.
func (h *Handler) Create(c *gin.Context) {
	var body CreateKeyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if body.Permissions == "" {
		body.Permissions = models.KeyPermissionReadWrite
	}
	if !validPermission(body.Permissions) {
		response.BadRequest(c, "permissions must be one of rw, r, w")
		return
	}
	plain, err := h.generate()
	if err != nil {
		response.Error(c, err)
		return
	}
	k := models.APIKey{
		Name:           body.Name,
		Permissions:    body.Permissions,
		OrganizationID: organizations.OrgID(c),
		UserID:         middleware.UserID(c),
	}
	if err := h.store.Create(c.Request.Context(), &k, Hash(plain)); err != nil {
		middleware.Log(c, h.logger).Error("create api key", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.Created(c, CreatedKey{APIKey: k, Key: plain})
}

func (h *Handler) keyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		response.BadRequest(c, "invalid keyId")
		return uuid.Nil, false
	}
	return id, true
}

// Rename handles PATCH /api/organization/:id/keys/:keyId.
func (h *Handler) Rename(c *gin.Context) {
	keyID, ok := h.keyID(c)
	if !ok {
		return
	}
	var body RenameKeyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name is required")
		return
	}
	found, err := h.store.Rename(c.Request.Context(), organizations.OrgID(c), keyID, body.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.NotFound(c, "API key not found")
		return
	}
	response.OK(c, gin.H{"id": keyID, "name": body.Name})
}

// Delete handles DELETE /api/organization/:id/keys/:keyId.
func (h *Handler) Delete(c *gin.Context) {
	keyID, ok := h.keyID(c)
	if !ok {
		return
	}
	found, err := h.store.SoftDelete(c.Request.Context(), organizations.OrgID(c), keyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.NotFound(c, "API key not found")
		return
	}
	response.OK(c, nil)
}

// RegisterRoutes mounts key routes. member and mutate are /organization/:id groups
// guarded by the matching access level.
func (h *Handler) RegisterRoutes(member, mutate *gin.RouterGroup) {
	member.GET("/keys", h.List)
	member.POST("/keys", h.Create)
	member.PATCH("/keys/:keyId", h.Rename)
	mutate.DELETE("/keys/:keyId", h.Delete)
}
