package keys

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/database"
)

// experimentKeyName marks keys minted by the playground; they are hidden from listings.
const experimentKeyName = "auto-generated-experiment-key"

// Repository handles helicone_api_keys persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an API key repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// List returns the organization's visible keys, newest first.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID) ([]models.APIKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, api_key_name, key_permissions, organization_id, user_id, created_at
		FROM helicone_api_keys
		WHERE organization_id = $1 AND soft_delete = false AND temp_key = false AND api_key_name <> $2
		ORDER BY created_at DESC`, orgID, experimentKeyName)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()
	list := []models.APIKey{}
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.Permissions, &k.OrganizationID, &k.UserID, &k.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, k)
	}
	return list, rows.Err()
}

// Create stores a hashed key and fills in its id and creation time.
func (r *Repository) Create(ctx context.Context, k *models.APIKey, hash string) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO helicone_api_keys (api_key_hash, api_key_name, key_permissions, organization_id, user_id, temp_key)
		VALUES ($1, $2, $3, $4, $5, false)
		RETURNING id, created_at`,
		hash, k.Name, k.Permissions, k.OrganizationID, k.UserID,
	).Scan(&k.ID, &k.CreatedAt)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// Rename changes a key's name. It reports false when the key is not in the organization.
func (r *Repository) Rename(ctx context.Context, orgID, keyID uuid.UUID, name string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE helicone_api_keys SET api_key_name = $3
		WHERE id = $1 AND organization_id = $2 AND soft_delete = false`, keyID, orgID, name)
	if err != nil {
		return false, fmt.Errorf("rename api key: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SoftDelete hides a key and stops it from authenticating.
func (r *Repository) SoftDelete(ctx context.Context, orgID, keyID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE helicone_api_keys SET soft_delete = true
		WHERE id = $1 AND organization_id = $2 AND soft_delete = false`, keyID, orgID)
	if err != nil {
		return false, fmt.Errorf("delete api key: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
