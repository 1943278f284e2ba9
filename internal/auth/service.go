package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/apperr"
	"github.com/helicone-dashboard/backend/pkg/database"
	"github.com/helicone-dashboard/backend/pkg/queue"
	"github.com/helicone-dashboard/backend/pkg/utils"
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (mo.Option[*models.User], error)
	GetByEmail(ctx context.Context, email string) (mo.Option[*models.User], error)
	Create(ctx context.Context, email string) (*models.User, error)
	ConfirmEmail(ctx context.Context, id uuid.UUID) error
	CreateMagicLink(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ActiveMagicLinks(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.MagicLink, error)
	ConsumeMagicLink(ctx context.Context, id uuid.UUID) (bool, error)
}

// EmailEnqueuer hands outgoing mail to the worker.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Service implements passwordless sign-in.
type Service struct {
	users    UserStore
	mail     EmailEnqueuer
	sessions *SessionService
	baseURL  string
	linkTTL  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates an auth service.
func NewService(users UserStore, mail EmailEnqueuer, sessions *SessionService, baseURL string, linkTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		mail:     mail,
		sessions: sessions,
		baseURL:  baseURL,
		linkTTL:  linkTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Sessions exposes the token service for middleware.
func (s *Service) Sessions() *SessionService { return s.sessions }

// EnsureUser returns the user with email, creating it when missing.
// created is true only when this call inserted the row.
func (s *Service) EnsureUser(ctx context.Context, email string) (*models.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if u, ok := existing.Get(); ok {
		return u, false, nil
	}
	u, err := s.users.Create(ctx, email)
	if err == nil {
		return u, true, nil
	}
	if !database.IsUniqueViolation(err) {
		return nil, false, err
	}
	// Lost a race with a concurrent insert; read the winner.
	existing, err = s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	u, ok := existing.Get()
	if !ok {
		return nil, false, fmt.Errorf("user %s vanished after conflict", email)
	}
	return u, false, nil
}

// EnsureInvitedUser resolves an invitee. Unknown emails get exactly one new
// account and a sign-in link.
func (s *Service) EnsureInvitedUser(ctx context.Context, email, orgName string) (*models.User, error) {
	u, created, err := s.EnsureUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if created {
		subject := "You have been invited to " + orgName
		if err := s.sendLink(ctx, u, subject); err != nil {
			return nil, err
		}
		s.logger.Info("invited new user", zap.String("user_id", u.ID.String()))
	}
	return u, nil
}

// SendMagicLink emails a one-time sign-in link, creating the account on first use.
func (s *Service) SendMagicLink(ctx context.Context, email string) error {
	u, _, err := s.EnsureUser(ctx, email)
	if err != nil {
		return err
	}
	return s.sendLink(ctx, u, "Your sign-in link")
}

func (s *Service) sendLink(ctx context.Context, u *models.User, subject string) error {
	token, err := utils.RandomToken(32)
	if err != nil {
		return err
	}
	hash, err := utils.HashToken(token)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}
	if err := s.users.CreateMagicLink(ctx, u.ID, hash, s.now().Add(s.linkTTL)); err != nil {
		return fmt.Errorf("store magic link: %w", err)
	}
	link := fmt.Sprintf("%s/signin/callback?email=%s&token=%s", s.baseURL, url.QueryEscape(u.Email), token)
	return s.mail.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      "magic_link",
		RecipientEmail: u.Email,
		Subject:        subject,
		BodyHTML:       fmt.Sprintf(`<p><a href="%s">Sign in</a></p><p>This link expires in %d minutes.</p>`, link, int(s.linkTTL.Minutes())),
	})
}

// Verify exchanges a magic-link token for a session token.
func (s *Service) Verify(ctx context.Context, email, token string) (string, *models.User, error) {
	invalid := apperr.Unauthenticated("invalid or expired link")

	found, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	u, ok := found.Get()
	if !ok {
		return "", nil, invalid
	}
	links, err := s.users.ActiveMagicLinks(ctx, u.ID, s.now())
	if err != nil {
		return "", nil, err
	}
	for _, l := range links {
		if !utils.CheckToken(token, l.TokenHash) {
			continue
		}
		consumed, err := s.users.ConsumeMagicLink(ctx, l.ID)
		if err != nil {
			return "", nil, err
		}
		if !consumed {
			return "", nil, invalid
		}
		if err := s.users.ConfirmEmail(ctx, u.ID); err != nil {
			return "", nil, err
		}
		session, err := s.sessions.Generate(u.ID, u.Email)
		if err != nil {
			return "", nil, fmt.Errorf("generate session: %w", err)
		}
		return session, u, nil
	}
	return "", nil, invalid
}

// Me returns the signed-in user.
func (s *Service) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	found, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u, ok := found.Get()
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}
