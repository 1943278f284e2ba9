package alerts

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/queue"
)

// CheckStore is what the checker needs from persistence.
type CheckStore interface {
	Active(ctx context.Context) ([]models.Alert, error)
	Measure(ctx context.Context, a models.Alert, since time.Time) (Measurement, error)
	Trigger(ctx context.Context, a models.Alert, value float64, at time.Time) error
	Resolve(ctx context.Context, a models.Alert, value float64, at time.Time) error
}

// Notifier queues outgoing notifications.
type Notifier interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
	EnqueueSlack(ctx context.Context, payload queue.SlackPayload) error
}

// Checker evaluates every active alert on a fixed interval.
type Checker struct {
	store     CheckStore
	cooldowns Cooldowns
	notifier  Notifier
	baseURL   string
	logger    *zap.Logger
	now       func() time.Time
}

// NewChecker creates an alert checker.
func NewChecker(store CheckStore, cooldowns Cooldowns, notifier Notifier, baseURL string, logger *zap.Logger) *Checker {
	return &Checker{store: store, cooldowns: cooldowns, notifier: notifier, baseURL: baseURL, logger: logger, now: time.Now}
}

// Run checks alerts every interval until ctx is done.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("alert checker stopping")
			return
		case <-ticker.C:
			if err := c.CheckOnce(ctx); err != nil {
				c.logger.Error("alert check failed", zap.Error(err))
			}
		}
	}
}

// CheckOnce evaluates all active alerts. A failure on one alert is logged and
// does not stop the others.
func (c *Checker) CheckOnce(ctx context.Context) error {
	list, err := c.store.Active(ctx)
	if err != nil {
		return err
	}
	now := c.now()
	for _, a := range list {
		if err := c.check(ctx, a, now); err != nil {
			c.logger.Warn("alert evaluation failed", zap.String("alert_id", a.ID.String()), zap.Error(err))
		}
	}
	return nil
}

func (c *Checker) check(ctx context.Context, a models.Alert, now time.Time) error {
	window := time.Duration(a.TimeWindowMs) * time.Millisecond
	m, err := c.store.Measure(ctx, a, now.Add(-window))
	if err != nil {
		return err
	}
	start, err := c.cooldowns.Start(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("read cooldown: %w", err)
	}

	d := Evaluate(a, m, start, now)
	if err := c.applyCooldown(ctx, a.ID, d.Cooldown, now); err != nil {
		return err
	}

	switch d.Transition {
	case Triggered:
		if err := c.store.Trigger(ctx, a, d.Value, now); err != nil {
			return err
		}
		c.logger.Info("alert triggered", zap.String("alert_id", a.ID.String()), zap.Float64("value", d.Value))
		c.notify(ctx, a, models.AlertStatusTriggered, d.Value)
	case Resolved:
		if err := c.store.Resolve(ctx, a, d.Value, now); err != nil {
			return err
		}
		c.logger.Info("alert resolved", zap.String("alert_id", a.ID.String()))
		c.notify(ctx, a, models.AlertStatusResolved, d.Value)
	}
	return nil
}

func (c *Checker) applyCooldown(ctx context.Context, id uuid.UUID, action CooldownAction, now time.Time) error {
	switch action {
	case CooldownStart:
		return c.cooldowns.SetStart(ctx, id, now)
	case CooldownClear:
		return c.cooldowns.Clear(ctx, id)
	}
	return nil
}

func (c *Checker) notify(ctx context.Context, a models.Alert, status string, value float64) {
	subject, text := Message(a, status, value)
	link := strings.TrimRight(c.baseURL, "/") + "/alerts"

	for _, to := range a.Emails {
		err := c.notifier.EnqueueEmail(ctx, queue.EmailPayload{
			EmailType:      "alert_" + status,
			RecipientEmail: to,
			Subject:        subject,
			BodyHTML:       fmt.Sprintf("<p>%s</p><p><a href=%q>View alerts</a></p>", html.EscapeString(text), link),
		})
		if err != nil {
			c.logger.Warn("enqueue alert email", zap.String("alert_id", a.ID.String()), zap.Error(err))
		}
	}
	for _, ch := range a.SlackChannels {
		err := c.notifier.EnqueueSlack(ctx, queue.SlackPayload{Channel: ch, Text: text + "\n" + link})
		if err != nil {
			c.logger.Warn("enqueue alert slack", zap.String("alert_id", a.ID.String()), zap.Error(err))
		}
	}
}

// Message renders the subject and text of an alert notification.
func Message(a models.Alert, status string, value float64) (subject, text string) {
	window := time.Duration(a.TimeWindowMs) * time.Millisecond
	if status == models.AlertStatusResolved {
		subject = fmt.Sprintf("Alert resolved: %s", a.Name)
		text = fmt.Sprintf("%s is back below %s over the last %s.", metricLabel(a.Metric), formatValue(a.Metric, a.Threshold), window)
		return subject, text
	}
	subject = fmt.Sprintf("Alert triggered: %s", a.Name)
	text = fmt.Sprintf("%s reached %s (threshold %s) over the last %s.",
		metricLabel(a.Metric), formatValue(a.Metric, value), formatValue(a.Metric, a.Threshold), window)
	return subject, text
}

func metricLabel(metric string) string {
	switch metric {
	case models.AlertMetricStatus:
		return "Error rate"
	case models.AlertMetricCost:
		return "Cost"
	case models.AlertMetricLatency:
		return "Average latency"
	}
	return metric
}

func formatValue(metric string, v float64) string {
	switch metric {
	case models.AlertMetricStatus:
		return fmt.Sprintf("%.2f%%", v)
	case models.AlertMetricCost:
		return fmt.Sprintf("$%.2f", v)
	case models.AlertMetricLatency:
		return fmt.Sprintf("%.0fms", v)
	}
	return fmt.Sprintf("%.2f", v)
}
