package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/database"
)

// Repository handles user and magic-link persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an auth repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, email, email_confirmed_at, created_at`

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (mo.Option[*models.User], error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var u models.User
	err := r.db.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.EmailConfirmedAt, &u.CreatedAt)
	if database.IsNoRows(err) {
		return mo.None[*models.User](), nil
	}
	if err != nil {
		return mo.None[*models.User](), fmt.Errorf("get user: %w", err)
	}
	return mo.Some(&u), nil
}

// GetByEmail returns a user by email, compared case-insensitively.
func (r *Repository) GetByEmail(ctx context.Context, email string) (mo.Option[*models.User], error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	var u models.User
	err := r.db.QueryRow(ctx, q, normalizeEmail(email)).Scan(&u.ID, &u.Email, &u.EmailConfirmedAt, &u.CreatedAt)
	if database.IsNoRows(err) {
		return mo.None[*models.User](), nil
	}
	if err != nil {
		return mo.None[*models.User](), fmt.Errorf("get user by email: %w", err)
	}
	return mo.Some(&u), nil
}

// Create inserts a new unconfirmed user.
func (r *Repository) Create(ctx context.Context, email string) (*models.User, error) {
	q := `INSERT INTO users (email) VALUES ($1) RETURNING ` + userColumns
	var u models.User
	err := r.db.QueryRow(ctx, q, normalizeEmail(email)).Scan(&u.ID, &u.Email, &u.EmailConfirmedAt, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// ConfirmEmail marks the user's email as confirmed if it was not already.
func (r *Repository) ConfirmEmail(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE users SET email_confirmed_at = now() WHERE id = $1 AND email_confirmed_at IS NULL`
	_, err := r.db.Exec(ctx, q, id)
	return err
}

// CreateMagicLink stores a hashed sign-in token.
func (r *Repository) CreateMagicLink(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	const q = `INSERT INTO magic_links (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`
	_, err := r.db.Exec(ctx, q, userID, tokenHash, expiresAt)
	return err
}

// ActiveMagicLinks returns unconsumed, unexpired links for the user, newest first.
func (r *Repository) ActiveMagicLinks(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.MagicLink, error) {
	const q = `SELECT id, user_id, token_hash, expires_at, consumed_at FROM magic_links
		WHERE user_id = $1 AND consumed_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC LIMIT 5`
	rows, err := r.db.Query(ctx, q, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var links []models.MagicLink
	for rows.Next() {
		var l models.MagicLink
		if err := rows.Scan(&l.ID, &l.UserID, &l.TokenHash, &l.ExpiresAt, &l.ConsumedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// ConsumeMagicLink marks a link used. It reports false if the link was already consumed.
func (r *Repository) ConsumeMagicLink(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE magic_links SET consumed_at = now() WHERE id = $1 AND consumed_at IS NULL`
	tag, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
