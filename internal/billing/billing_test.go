package billing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/apperr"
)

type fakeProvider struct {
	customers int
	checkout  CheckoutParams
	event     Event
	parseErr  error
}

func (f *fakeProvider) CreateCustomer(_ context.Context, _, _, _ string) (string, error) {
	f.customers++
	return "cus_new", nil
}

func (f *fakeProvider) CheckoutURL(_ context.Context, p CheckoutParams) (string, error) {
	f.checkout = p
	return "https://checkout.example/" + p.PriceID, nil
}

func (f *fakeProvider) PortalURL(_ context.Context, customerID, _ string) (string, error) {
	return "https://portal.example/" + customerID, nil
}

func (f *fakeProvider) ParseWebhook([]byte, string) (Event, error) {
	return f.event, f.parseErr
}

type fakeOrgs struct {
	org           *models.Organization
	customerSet   string
	updatedTier   string
	updatedSub    *string
	knownCustomer string
}

func (f *fakeOrgs) GetByID(context.Context, uuid.UUID) (mo.Option[*models.Organization], error) {
	if f.org == nil {
		return mo.None[*models.Organization](), nil
	}
	return mo.Some(f.org), nil
}

func (f *fakeOrgs) SetStripeCustomer(_ context.Context, _ uuid.UUID, customerID string) error {
	f.customerSet = customerID
	return nil
}

func (f *fakeOrgs) UpdateSubscription(_ context.Context, customerID, tier string, subID *string) (bool, error) {
	if customerID != f.knownCustomer {
		return false, nil
	}
	f.updatedTier, f.updatedSub = tier, subID
	return true, nil
}

type allow bool

func (a allow) CanMutate(context.Context, uuid.UUID, uuid.UUID) (bool, error) { return bool(a), nil }

var prices = map[string]string{models.TierPro: "price_pro", models.TierEnterprise: ""}

func newService(p *fakeProvider, orgs *fakeOrgs, access Access) *Service {
	return NewService(p, orgs, access, prices, URLs{Success: "https://app/ok", Cancel: "https://app/cancel"}, zap.NewNop())
}

func TestCheckoutCreatesCustomerOnce(t *testing.T) {
	org := &models.Organization{ID: uuid.New(), Name: "Acme", Tier: models.TierFree}
	orgs := &fakeOrgs{org: org}
	p := &fakeProvider{}
	svc := newService(p, orgs, allow(true))

	url, err := svc.Checkout(context.Background(), uuid.New(), "a@acme.dev", org.ID, models.TierPro)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/price_pro", url)
	assert.Equal(t, 1, p.customers)
	assert.Equal(t, "cus_new", orgs.customerSet)
	assert.Equal(t, org.ID.String(), p.checkout.OrganizationID)
	assert.Equal(t, "https://app/ok", p.checkout.SuccessURL)

	existing := "cus_existing"
	org.StripeCustomerID = &existing
	_, err = svc.Checkout(context.Background(), uuid.New(), "a@acme.dev", org.ID, models.TierPro)
	require.NoError(t, err)
	assert.Equal(t, 1, p.customers)
	assert.Equal(t, "cus_existing", p.checkout.CustomerID)
}

func TestCheckoutRejections(t *testing.T) {
	org := &models.Organization{ID: uuid.New(), Tier: models.TierPro}
	ctx := context.Background()

	_, err := newService(&fakeProvider{}, &fakeOrgs{org: org}, allow(true)).Checkout(ctx, uuid.New(), "", org.ID, models.TierEnterprise)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err), "unconfigured price")

	_, err = newService(&fakeProvider{}, &fakeOrgs{org: org}, allow(false)).Checkout(ctx, uuid.New(), "", org.ID, models.TierPro)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = newService(&fakeProvider{}, &fakeOrgs{org: org}, allow(true)).Checkout(ctx, uuid.New(), "", org.ID, models.TierPro)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "already on tier")

	_, err = newService(&fakeProvider{}, &fakeOrgs{}, allow(true)).Checkout(ctx, uuid.New(), "", org.ID, models.TierPro)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPortalRequiresCustomer(t *testing.T) {
	org := &models.Organization{ID: uuid.New()}
	svc := newService(&fakeProvider{}, &fakeOrgs{org: org}, allow(true))
	_, err := svc.Portal(context.Background(), uuid.New(), org.ID)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	cus := "cus_1"
	org.StripeCustomerID = &cus
	url, err := svc.Portal(context.Background(), uuid.New(), org.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example/cus_1", url)
}

func TestWebhookSubscriptionLifecycle(t *testing.T) {
	orgs := &fakeOrgs{knownCustomer: "cus_1"}
	p := &fakeProvider{}
	svc := newService(p, orgs, allow(true))
	ctx := context.Background()

	p.event = Event{Type: EventSubscriptionUpdated, CustomerID: "cus_1", SubscriptionID: "sub_1", PriceID: "price_pro", Status: "active"}
	require.NoError(t, svc.HandleWebhook(ctx, nil, "sig"))
	assert.Equal(t, models.TierPro, orgs.updatedTier)
	require.NotNil(t, orgs.updatedSub)
	assert.Equal(t, "sub_1", *orgs.updatedSub)

	p.event = Event{Type: EventSubscriptionDeleted, CustomerID: "cus_1", SubscriptionID: "sub_1", Status: "canceled"}
	require.NoError(t, svc.HandleWebhook(ctx, nil, "sig"))
	assert.Equal(t, models.TierFree, orgs.updatedTier)
	assert.Nil(t, orgs.updatedSub)

	p.event = Event{Type: "invoice.paid"}
	assert.NoError(t, svc.HandleWebhook(ctx, nil, "sig"))

	p.parseErr = errors.New("no signatures found matching the expected signature")
	assert.ErrorIs(t, svc.HandleWebhook(ctx, nil, "bad"), ErrInvalidSignature)
}

func TestWebhookCheckoutLinksCustomer(t *testing.T) {
	orgs := &fakeOrgs{}
	orgID := uuid.New()
	p := &fakeProvider{event: Event{Type: EventCheckoutCompleted, CustomerID: "cus_9", OrganizationID: orgID.String()}}
	require.NoError(t, newService(p, orgs, allow(true)).HandleWebhook(context.Background(), nil, "sig"))
	assert.Equal(t, "cus_9", orgs.customerSet)
}

func TestStripeProviderParsesSignedSubscription(t *testing.T) {
	const secret = "whsec_test"
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_1",
			"object": "subscription",
			"customer": "cus_1",
			"status": "active",
			"metadata": {"organization_id": "org-1"},
			"items": {"object": "list", "data": [{"id": "si_1", "object": "subscription_item", "price": {"id": "price_pro", "object": "price"}}]}
		}}
	}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})

	ev, err := NewStripeProvider("sk_test", secret).ParseWebhook(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionUpdated, ev.Type)
	assert.Equal(t, "cus_1", ev.CustomerID)
	assert.Equal(t, "sub_1", ev.SubscriptionID)
	assert.Equal(t, "price_pro", ev.PriceID)
	assert.Equal(t, "active", ev.Status)
	assert.Equal(t, "org-1", ev.OrganizationID)

	_, err = NewStripeProvider("sk_test", "whsec_other").ParseWebhook(signed.Payload, signed.Header)
	assert.Error(t, err)
}

func TestWebhookEndpointRejectsBadSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := &fakeProvider{parseErr: errors.New("bad signature")}
	h := NewHandler(newService(p, &fakeOrgs{}, allow(true)), zap.NewNop())
	r := gin.New()
	r.POST("/webhooks/stripe", h.Webhook)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	org := &models.Organization{ID: uuid.New(), Tier: models.TierFree}
	h := NewHandler(newService(&fakeProvider{}, &fakeOrgs{org: org}, allow(true)), zap.NewNop())
	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uuid.New())
		c.Set(middleware.ContextUserEmail, "a@acme.dev")
		c.Next()
	})
	h.RegisterRoutes(api)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/checkout",
		strings.NewReader(`{"organization_id":"`+org.ID.String()+`","tier":"pro"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://checkout.example/price_pro")
}
