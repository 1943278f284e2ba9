package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/helicone-dashboard/backend/pkg/database"
)

// Increments supported by CountOverTime.
const (
	IncrementHour = "hour"
	IncrementDay  = "day"
	IncrementWeek = "week"
)

// ValidIncrement reports whether inc is a supported bucket size.
func ValidIncrement(inc string) bool {
	switch inc {
	case IncrementHour, IncrementDay, IncrementWeek:
		return true
	}
	return false
}

// Point is one chart bucket.
type Point struct {
	Time  time.Time `json:"time"`
	Count int64     `json:"count"`
}

// Repository runs read-only request aggregates for one organization.
type Repository struct {
	db database.DB
}

// NewRepository creates a usage repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// CountRequests counts the organization's requests in [from, to).
func (r *Repository) CountRequests(ctx context.Context, orgID uuid.UUID, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM request WHERE helicone_org_id = $1 AND created_at >= $2 AND created_at < $3`,
		orgID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return n, nil
}

func (r *Repository) buckets(ctx context.Context, sql string, args ...any) ([]Point, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("bucket requests: %w", err)
	}
	defer rows.Close()
	points := []Point{}
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Time, &p.Count); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// CountOverTime buckets the organization's requests in [from, to) by increment.
// increment must satisfy ValidIncrement.
func (r *Repository) CountOverTime(ctx context.Context, orgID uuid.UUID, from, to time.Time, increment string) ([]Point, error) {
	if !ValidIncrement(increment) {
		return nil, fmt.Errorf("invalid increment %q", increment)
	}
	return r.buckets(ctx,
		`SELECT date_trunc('`+increment+`', created_at) AS bucket, COUNT(*)
		FROM request WHERE helicone_org_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY bucket ORDER BY bucket`, orgID, from, to)
}

// RateLimited buckets the organization's 429 responses in [from, to) by hour.
func (r *Repository) RateLimited(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]Point, error) {
	return r.buckets(ctx,
		`SELECT date_trunc('hour', req.created_at) AS bucket, COUNT(*)
		FROM request req JOIN response resp ON resp.request = req.id
		WHERE req.helicone_org_id = $1 AND resp.status = 429 AND req.created_at >= $2 AND req.created_at < $3
		GROUP BY bucket ORDER BY bucket`, orgID, from, to)
}
