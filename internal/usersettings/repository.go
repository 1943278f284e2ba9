package usersettings

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/database"
)

// Repository handles user_settings persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a user settings repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

const settingsColumns = `"user", tier, request_limit, stripe_customer_id, subscription_id, created_at`

func scanSettings(row interface{ Scan(...any) error }) (*models.UserSettings, error) {
	var s models.UserSettings
	if err := row.Scan(&s.UserID, &s.Tier, &s.RequestLimit, &s.StripeCustomerID, &s.SubscriptionID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Ensure creates the settings row with defaults if missing and returns it.
func (r *Repository) Ensure(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	if _, err := r.db.Exec(ctx,
		`INSERT INTO user_settings ("user") VALUES ($1) ON CONFLICT ("user") DO NOTHING`, userID); err != nil {
		return nil, fmt.Errorf("ensure user settings: %w", err)
	}
	s, err := scanSettings(r.db.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM user_settings WHERE "user" = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("get user settings: %w", err)
	}
	return s, nil
}

// UpdateRequestLimit sets request_limit, creating the row if needed.
func (r *Repository) UpdateRequestLimit(ctx context.Context, userID uuid.UUID, limit int64) (*models.UserSettings, error) {
	s, err := scanSettings(r.db.QueryRow(ctx,
		`INSERT INTO user_settings ("user", request_limit) VALUES ($1, $2)
		ON CONFLICT ("user") DO UPDATE SET request_limit = EXCLUDED.request_limit
		RETURNING `+settingsColumns, userID, limit))
	if err != nil {
		return nil, fmt.Errorf("update user settings: %w", err)
	}
	return s, nil
}
