package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("VAULT_SECRET", "vault")

	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_SECRET")
}

func TestLoadDefaultsAndLists(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("VAULT_SECRET", "vault")
	t.Setenv("ADMIN_EMAILS", "ops@example.com, Root@Example.com ,")
	t.Setenv("APP_BASE_URL", "https://app.example.com/")
	t.Setenv("STRIPE_PRO_PRICE_ID", "price_pro")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://app.example.com", cfg.App.BaseURL)
	assert.Equal(t, []string{"ops@example.com", "Root@Example.com"}, cfg.App.AdminEmails)
	assert.True(t, cfg.App.IsAdmin("root@example.com"))
	assert.False(t, cfg.App.IsAdmin("user@example.com"))
	assert.Equal(t, "price_pro", cfg.Stripe.PriceIDs["pro"])
	assert.Equal(t, 300, cfg.RateLimit.RequestsPer)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.DSN())

	c.URL = "postgres://override"
	assert.Equal(t, "postgres://override", c.DSN())
}
