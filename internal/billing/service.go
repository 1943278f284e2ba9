package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/apperr"
)

// ErrInvalidSignature is returned for webhooks that fail verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// OrgStore reads and updates the billing fields of organizations.
type OrgStore interface {
	GetByID(ctx context.Context, orgID uuid.UUID) (mo.Option[*models.Organization], error)
	SetStripeCustomer(ctx context.Context, orgID uuid.UUID, customerID string) error
	UpdateSubscription(ctx context.Context, customerID, tier string, subscriptionID *string) (bool, error)
}

// Access decides whether a user may manage an organization's billing.
type Access interface {
	CanMutate(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// URLs are the redirect targets after checkout or the portal.
type URLs struct {
	Success      string
	Cancel       string
	PortalReturn string
}

// Service starts checkouts and applies subscription changes.
type Service struct {
	provider PaymentProvider
	orgs     OrgStore
	access   Access
	prices   map[string]string
	urls     URLs
	logger   *zap.Logger
}

// NewService creates a billing service. prices maps tier to price id.
func NewService(provider PaymentProvider, orgs OrgStore, access Access, prices map[string]string, urls URLs, logger *zap.Logger) *Service {
	return &Service{provider: provider, orgs: orgs, access: access, prices: prices, urls: urls, logger: logger}
}

func (s *Service) billableOrg(ctx context.Context, orgID, userID uuid.UUID) (*models.Organization, error) {
	ok, err := s.access.CanMutate(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("User does not have access to manage billing")
	}
	found, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	org, ok := found.Get()
	if !ok {
		return nil, apperr.NotFound("Organization not found")
	}
	return org, nil
}

// Checkout returns the hosted checkout URL for upgrading orgID to tier.
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID, email string, orgID uuid.UUID, tier string) (string, error) {
	price := s.prices[tier]
	if price == "" {
		return "", apperr.InvalidInput("Unknown or unavailable tier: " + tier)
	}
	org, err := s.billableOrg(ctx, orgID, userID)
	if err != nil {
		return "", err
	}
	if org.Tier == tier {
		return "", apperr.Conflict("Organization is already on this tier")
	}

	customerID := ""
	if org.StripeCustomerID != nil {
		customerID = *org.StripeCustomerID
	}
	if customerID == "" {
		if customerID, err = s.provider.CreateCustomer(ctx, email, org.ID.String(), org.Name); err != nil {
			return "", err
		}
		if err := s.orgs.SetStripeCustomer(ctx, org.ID, customerID); err != nil {
			return "", err
		}
	}
	return s.provider.CheckoutURL(ctx, CheckoutParams{
		CustomerID:     customerID,
		PriceID:        price,
		OrganizationID: org.ID.String(),
		SuccessURL:     s.urls.Success,
		CancelURL:      s.urls.Cancel,
	})
}

// Portal returns the customer portal URL of orgID.
func (s *Service) Portal(ctx context.Context, userID, orgID uuid.UUID) (string, error) {
	org, err := s.billableOrg(ctx, orgID, userID)
	if err != nil {
		return "", err
	}
	if org.StripeCustomerID == nil || *org.StripeCustomerID == "" {
		return "", apperr.InvalidInput("Organization has no billing account")
	}
	return s.provider.PortalURL(ctx, *org.StripeCustomerID, s.urls.PortalReturn)
}

func (s *Service) tierForPrice(priceID string) (string, bool) {
	for tier, id := range s.prices {
		if id != "" && id == priceID {
			return tier, true
		}
	}
	return "", false
}

// HandleWebhook verifies and applies one payment event. Unknown event types are ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("webhook verification failed", zap.Error(err))
		return ErrInvalidSignature
	}
	log := s.logger.With(zap.String("event_id", ev.ID), zap.String("type", ev.Type))

	switch ev.Type {
	case EventCheckoutCompleted:
		orgID, err := uuid.Parse(ev.OrganizationID)
		if err != nil || ev.CustomerID == "" {
			log.Warn("checkout without organization reference")
			return nil
		}
		return s.orgs.SetStripeCustomer(ctx, orgID, ev.CustomerID)

	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		tier, subID := models.TierFree, (*string)(nil)
		if ev.Type != EventSubscriptionDeleted && subscriptionLive(ev.Status) {
			t, ok := s.tierForPrice(ev.PriceID)
			if !ok {
				log.Warn("subscription price not configured", zap.String("price_id", ev.PriceID))
				return nil
			}
			tier, subID = t, &ev.SubscriptionID
		}
		found, err := s.orgs.UpdateSubscription(ctx, ev.CustomerID, tier, subID)
		if err != nil {
			return err
		}
		if !found {
			log.Warn("no organization for customer", zap.String("customer_id", ev.CustomerID))
			return nil
		}
		log.Info("subscription applied", zap.String("customer_id", ev.CustomerID), zap.String("tier", tier))
	}
	return nil
}

func subscriptionLive(status string) bool {
	switch status {
	case "active", "trialing", "past_due":
		return true
	}
	return false
}
