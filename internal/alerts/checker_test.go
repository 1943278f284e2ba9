package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/queue"
)

type fakeCheckStore struct {
	mu       sync.Mutex
	alerts   []models.Alert
	measures map[uuid.UUID]Measurement
	failing  map[uuid.UUID]bool
	history  []string
}

func (s *fakeCheckStore) Active(context.Context) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Alert(nil), s.alerts...), nil
}

func (s *fakeCheckStore) Measure(_ context.Context, a models.Alert, _ time.Time) (Measurement, error) {
	if s.failing[a.ID] {
		return Measurement{}, errors.New("canceling statement due to statement timeout")
	}
	return s.measures[a.ID], nil
}

func (s *fakeCheckStore) setStatus(id uuid.UUID, status string) {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].Status = status
		}
	}
}

func (s *fakeCheckStore) Trigger(_ context.Context, a models.Alert, _ float64, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatus(a.ID, models.AlertStatusTriggered)
	s.history = append(s.history, "triggered:"+a.Name)
	return nil
}

func (s *fakeCheckStore) Resolve(_ context.Context, a models.Alert, _ float64, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatus(a.ID, models.AlertStatusResolved)
	s.history = append(s.history, "resolved:"+a.Name)
	return nil
}

type fakeNotifier struct {
	emails []queue.EmailPayload
	slacks []queue.SlackPayload
}

func (n *fakeNotifier) EnqueueEmail(_ context.Context, p queue.EmailPayload) error {
	n.emails = append(n.emails, p)
	return nil
}

func (n *fakeNotifier) EnqueueSlack(_ context.Context, p queue.SlackPayload) error {
	n.slacks = append(n.slacks, p)
	return nil
}

func TestCheckerLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	alert := models.Alert{
		ID: uuid.New(), OrgID: uuid.New(), Name: "errors", Metric: models.AlertMetricStatus,
		Threshold: 10, TimeWindowMs: (5 * time.Minute).Milliseconds(), Status: models.AlertStatusResolved,
		Emails: []string{"ops@example.com"}, SlackChannels: []string{"#alerts"},
	}
	store := &fakeCheckStore{alerts: []models.Alert{alert}, measures: map[uuid.UUID]Measurement{}}
	notifier := &fakeNotifier{}
	cooldowns := NewRedisCooldowns(rdb)
	checker := NewChecker(store, cooldowns, notifier, "https://app.example.com/", zap.NewNop())

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	checker.now = func() time.Time { return now }
	ctx := context.Background()

	store.measures[alert.ID] = Measurement{Value: 25, RequestCount: 40}
	require.NoError(t, checker.CheckOnce(ctx))
	assert.Equal(t, []string{"triggered:errors"}, store.history)
	require.Len(t, notifier.emails, 1)
	assert.Equal(t, "ops@example.com", notifier.emails[0].RecipientEmail)
	assert.Equal(t, "Alert triggered: errors", notifier.emails[0].Subject)
	require.Len(t, notifier.slacks, 1)
	assert.Equal(t, "#alerts", notifier.slacks[0].Channel)
	assert.Contains(t, notifier.slacks[0].Text, "https://app.example.com/alerts")

	// below threshold: cooldown starts, nothing resolves yet
	store.measures[alert.ID] = Measurement{Value: 2, RequestCount: 40}
	now = now.Add(time.Minute)
	require.NoError(t, checker.CheckOnce(ctx))
	start, err := cooldowns.Start(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), start.MustGet().UnixMilli())
	assert.Len(t, store.history, 1)

	now = now.Add(5 * time.Minute)
	require.NoError(t, checker.CheckOnce(ctx))
	assert.Equal(t, []string{"triggered:errors", "resolved:errors"}, store.history)
	assert.Len(t, notifier.emails, 2)
	assert.Equal(t, "Alert resolved: errors", notifier.emails[1].Subject)

	start, err = cooldowns.Start(ctx, alert.ID)
	require.NoError(t, err)
	assert.True(t, start.IsAbsent())
}

func TestCheckerContinuesPastFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	broken := models.Alert{ID: uuid.New(), Name: "broken", Metric: models.AlertMetricCost, Threshold: 1, Status: models.AlertStatusResolved}
	healthy := models.Alert{ID: uuid.New(), Name: "healthy", Metric: models.AlertMetricCost, Threshold: 1, Status: models.AlertStatusResolved}
	store := &fakeCheckStore{
		alerts:   []models.Alert{broken, healthy},
		measures: map[uuid.UUID]Measurement{healthy.ID: {Value: 3, RequestCount: 1}},
		failing:  map[uuid.UUID]bool{broken.ID: true},
	}
	checker := NewChecker(store, NewRedisCooldowns(rdb), &fakeNotifier{}, "", zap.NewNop())

	require.NoError(t, checker.CheckOnce(context.Background()))
	assert.Equal(t, []string{"triggered:healthy"}, store.history)
}
