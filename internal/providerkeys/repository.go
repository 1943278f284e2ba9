package providerkeys

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/database"
)

// Repository handles provider_keys persistence. Only sealed secrets are stored.
type Repository struct {
	db database.DB
}

// NewRepository creates a provider key repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// List returns the organization's keys with their hints.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID) ([]models.ProviderKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, org_id, provider_name, provider_key_name, key_hint, created_at
		FROM provider_keys WHERE org_id = $1 AND soft_delete = false
		ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list provider keys: %w", err)
	}
	defer rows.Close()
	list := []models.ProviderKey{}
	for rows.Next() {
		var k models.ProviderKey
		if err := rows.Scan(&k.ID, &k.OrgID, &k.ProviderName, &k.ProviderKeyName, &k.MaskedKey, &k.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, k)
	}
	return list, rows.Err()
}

// Create stores a sealed key. The unique index on (org_id, provider_key_name) rejects duplicates.
func (r *Repository) Create(ctx context.Context, k *models.ProviderKey, sealed []byte) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO provider_keys (org_id, provider_name, provider_key_name, sealed_key, key_hint)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		k.OrgID, k.ProviderName, k.ProviderKeyName, sealed, k.MaskedKey,
	).Scan(&k.ID, &k.CreatedAt)
	if err != nil {
		return fmt.Errorf("create provider key: %w", err)
	}
	return nil
}

// Sealed returns the sealed secret of one key.
func (r *Repository) Sealed(ctx context.Context, orgID, keyID uuid.UUID) (mo.Option[[]byte], error) {
	var sealed []byte
	err := r.db.QueryRow(ctx,
		`SELECT sealed_key FROM provider_keys WHERE id = $1 AND org_id = $2 AND soft_delete = false`,
		keyID, orgID).Scan(&sealed)
	if database.IsNoRows(err) {
		return mo.None[[]byte](), nil
	}
	if err != nil {
		return mo.None[[]byte](), fmt.Errorf("get provider key: %w", err)
	}
	return mo.Some(sealed), nil
}

// SoftDelete removes a key from use.
func (r *Repository) SoftDelete(ctx context.Context, orgID, keyID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE provider_keys SET soft_delete = true WHERE id = $1 AND org_id = $2 AND soft_delete = false`,
		keyID, orgID)
	if err != nil {
		return false, fmt.Errorf("delete provider key: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
