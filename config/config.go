package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	AWS       AWSConfig
	Stripe    StripeConfig
	Email     EmailConfig
	Slack     SlackConfig
	Vault     VaultConfig
	RateLimit RateLimitConfig
	App       AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SessionConfig holds session token signing settings.
type SessionConfig struct {
	Secret          string
	ExpireHours     int
	CookieName      string
	CookieSecure    bool
	MagicLinkTTLMin int
}

// AWSConfig holds AWS credentials and the reports bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	Endpoint             string
	ReportsBucket        string
	PresignExpireMinutes int
}

// StripeConfig holds payment provider settings. Price IDs are keyed by tier.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceIDs      map[string]string
	SuccessURL    string
	CancelURL     string
	PortalReturn  string
}

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// SlackConfig holds the bot token used for alert notifications.
type SlackConfig struct {
	BotToken string
}

// VaultConfig holds the secret used to seal provider keys at rest.
type VaultConfig struct {
	Secret string
}

// RateLimitConfig controls the per-user API rate limiter.
type RateLimitConfig struct {
	Enabled       bool
	RequestsPer   int
	WindowSeconds int
	Store         string // "redis" or "memory"
}

// AppConfig holds public URLs and administrative settings.
type AppConfig struct {
	BaseURL     string
	AdminEmails []string
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// IsAdmin reports whether email belongs to a dashboard administrator.
func (c AppConfig) IsAdmin(email string) bool {
	for _, a := range c.AdminEmails {
		if strings.EqualFold(a, email) {
			return true
		}
	}
	return false
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8585"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "dashboard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Secret:          getEnv("SESSION_SECRET", ""),
			ExpireHours:     getEnvInt("SESSION_EXPIRE_HOURS", 24*7),
			CookieName:      getEnv("SESSION_COOKIE_NAME", "session"),
			CookieSecure:    getEnvBool("SESSION_COOKIE_SECURE", true),
			MagicLinkTTLMin: getEnvInt("MAGIC_LINK_TTL_MINUTES", 15),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:             getEnv("AWS_S3_ENDPOINT", ""),
			ReportsBucket:        getEnv("AWS_S3_REPORTS_BUCKET", "dashboard-reports"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PriceIDs: map[string]string{
				"pro":        getEnv("STRIPE_PRO_PRICE_ID", ""),
				"enterprise": getEnv("STRIPE_ENTERPRISE_PRICE_ID", ""),
				"basic_flex": getEnv("STRIPE_BASIC_FLEX_PRICE_ID", ""),
			},
			SuccessURL:   getEnv("STRIPE_SUCCESS_URL", "http://localhost:3000/settings/billing?success=true"),
			CancelURL:    getEnv("STRIPE_CANCEL_URL", "http://localhost:3000/settings/billing"),
			PortalReturn: getEnv("STRIPE_PORTAL_RETURN_URL", "http://localhost:3000/settings/billing"),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Dashboard"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
		Slack: SlackConfig{
			BotToken: getEnv("SLACK_BOT_TOKEN", ""),
		},
		Vault: VaultConfig{
			Secret: getEnv("VAULT_SECRET", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPer:   getEnvInt("RATE_LIMIT_REQUESTS", 300),
			WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
			Store:         getEnv("RATE_LIMIT_STORE", "redis"),
		},
		App: AppConfig{
			BaseURL:     strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
			AdminEmails: splitTrim(getEnv("ADMIN_EMAILS", ""), ","),
		},
	}

	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if cfg.Vault.Secret == "" {
		return nil, fmt.Errorf("VAULT_SECRET is required")
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
