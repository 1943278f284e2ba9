package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated dashboard user.
type User struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// MagicLink is a pending one-time sign-in token.
type MagicLink struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TokenHash  string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// UserSettings holds per-user plan settings.
type UserSettings struct {
	UserID           uuid.UUID `json:"user"`
	Tier             string    `json:"tier"`
	RequestLimit     int64     `json:"request_limit"`
	StripeCustomerID *string   `json:"stripe_customer_id"`
	SubscriptionID   *string   `json:"subscription_id"`
	CreatedAt        time.Time `json:"created_at"`
}
