package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/database"
)

// Repository handles alert and alert_history persistence and the window aggregates.
type Repository struct {
	db database.DB
}

// NewRepository creates an alerts repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

const alertColumns = `id, org_id, name, metric, threshold, time_window, minimum_request_count,
	emails, slack_channels, status, triggered_at, created_at`

func scanAlert(row interface{ Scan(...any) error }) (models.Alert, error) {
	var a models.Alert
	err := row.Scan(&a.ID, &a.OrgID, &a.Name, &a.Metric, &a.Threshold, &a.TimeWindowMs, &a.MinimumRequestCount,
		&a.Emails, &a.SlackChannels, &a.Status, &a.TriggeredAt, &a.CreatedAt)
	return a, err
}

func (r *Repository) queryAlerts(ctx context.Context, sql string, args ...any) ([]models.Alert, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	list := []models.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// List returns the organization's alerts.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID) ([]models.Alert, error) {
	return r.queryAlerts(ctx, `SELECT `+alertColumns+` FROM alert
		WHERE org_id = $1 AND soft_delete = false ORDER BY created_at DESC`, orgID)
}

// Active returns every alert the checker evaluates.
func (r *Repository) Active(ctx context.Context) ([]models.Alert, error) {
	return r.queryAlerts(ctx, `SELECT a.id, a.org_id, a.name, a.metric, a.threshold, a.time_window,
		a.minimum_request_count, a.emails, a.slack_channels, a.status, a.triggered_at, a.created_at
		FROM alert a JOIN organization o ON o.id = a.org_id
		WHERE a.soft_delete = false AND o.soft_delete = false`)
}

// Create inserts an alert in the resolved state.
func (r *Repository) Create(ctx context.Context, a *models.Alert) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO alert (org_id, name, metric, threshold, time_window, minimum_request_count, emails, slack_channels)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, status, created_at`,
		a.OrgID, a.Name, a.Metric, a.Threshold, a.TimeWindowMs, a.MinimumRequestCount, a.Emails, a.SlackChannels,
	).Scan(&a.ID, &a.Status, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

// SoftDelete stops an alert from being evaluated or listed.
func (r *Repository) SoftDelete(ctx context.Context, orgID, alertID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE alert SET soft_delete = true WHERE id = $1 AND org_id = $2 AND soft_delete = false`, alertID, orgID)
	if err != nil {
		return false, fmt.Errorf("delete alert: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// History returns the organization's latest alert transitions.
func (r *Repository) History(ctx context.Context, orgID uuid.UUID, limit int) ([]models.AlertHistory, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, alert_id, org_id, alert_name, alert_metric, alert_threshold, triggered_value, status,
		alert_start_time, alert_end_time, created_at
		FROM alert_history WHERE org_id = $1 ORDER BY created_at DESC LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("list alert history: %w", err)
	}
	defer rows.Close()
	list := []models.AlertHistory{}
	for rows.Next() {
		var h models.AlertHistory
		if err := rows.Scan(&h.ID, &h.AlertID, &h.OrgID, &h.AlertName, &h.AlertMetric, &h.AlertThreshold,
			&h.TriggeredValue, &h.Status, &h.AlertStartTime, &h.AlertEndTime, &h.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, h)
	}
	return list, rows.Err()
}

// Measure aggregates the alert's metric over [since, now).
func (r *Repository) Measure(ctx context.Context, a models.Alert, since time.Time) (Measurement, error) {
	var m Measurement
	var expr string
	switch a.Metric {
	case models.AlertMetricStatus:
		expr = `COALESCE(100.0 * COUNT(*) FILTER (WHERE resp.status >= 400 OR resp.status < 0) / NULLIF(COUNT(*), 0), 0)`
	case models.AlertMetricCost:
		expr = `COALESCE(SUM(resp.cost_usd), 0)`
	case models.AlertMetricLatency:
		expr = `COALESCE(AVG(resp.delay_ms), 0)`
	default:
		return m, fmt.Errorf("unknown metric %q", a.Metric)
	}
	err := r.db.QueryRow(ctx,
		`SELECT `+expr+`::float8, COUNT(*)
		FROM request req JOIN response resp ON resp.request = req.id
		WHERE req.helicone_org_id = $1 AND req.created_at >= $2`, a.OrgID, since,
	).Scan(&m.Value, &m.RequestCount)
	if err != nil {
		return m, fmt.Errorf("measure alert %s: %w", a.ID, err)
	}
	return m, nil
}

// Trigger marks the alert triggered and opens a history row.
func (r *Repository) Trigger(ctx context.Context, a models.Alert, value float64, at time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE alert SET status = 'triggered', triggered_at = $2 WHERE id = $1`, a.ID, at); err != nil {
		return fmt.Errorf("trigger alert: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO alert_history (alert_id, org_id, alert_name, alert_metric, alert_threshold, triggered_value, status, alert_start_time)
		VALUES ($1, $2, $3, $4, $5, $6, 'triggered', $7)`,
		a.ID, a.OrgID, a.Name, a.Metric, a.Threshold, value, at); err != nil {
		return fmt.Errorf("insert alert history: %w", err)
	}
	return tx.Commit(ctx)
}

// Resolve marks the alert resolved and appends a resolved snapshot spanning
// the triggered period.
func (r *Repository) Resolve(ctx context.Context, a models.Alert, value float64, at time.Time) error {
	start := at
	if a.TriggeredAt != nil {
		start = *a.TriggeredAt
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE alert SET status = 'resolved', triggered_at = NULL WHERE id = $1`, a.ID); err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO alert_history (alert_id, org_id, alert_name, alert_metric, alert_threshold, triggered_value, status, alert_start_time, alert_end_time)
		VALUES ($1, $2, $3, $4, $5, $6, 'resolved', $7, $8)`,
		a.ID, a.OrgID, a.Name, a.Metric, a.Threshold, value, start, at); err != nil {
		return fmt.Errorf("insert alert history: %w", err)
	}
	return tx.Commit(ctx)
}
