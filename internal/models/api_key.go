package models

import (
	"time"

	"github.com/google/uuid"
)

// API key permissions.
const (
	KeyPermissionReadWrite = "rw"
	KeyPermissionRead      = "r"
	KeyPermissionWrite     = "w"
)

// APIKey is a hashed organization API key. The plaintext is never stored.
type APIKey struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"api_key_name"`
	Permissions    string    `json:"key_permissions"`
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProviderKey is an upstream LLM provider credential, sealed at rest.
type ProviderKey struct {
	ID              uuid.UUID `json:"id"`
	OrgID           uuid.UUID `json:"org_id"`
	ProviderName    string    `json:"provider_name"`
	ProviderKeyName string    `json:"provider_key_name"`
	MaskedKey       string    `json:"provider_key"`
	CreatedAt       time.Time `json:"created_at"`
}
