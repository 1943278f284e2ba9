package stats

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/helicone-dashboard/backend/pkg/database"
)

// Point is one chart-ready sample.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Dashboard is the admin stats response.
type Dashboard struct {
	WeeklyActiveOrgs  []Point `json:"weekly_active_orgs"`
	MonthlyActiveOrgs []Point `json:"monthly_active_orgs"`
	WeeklyNewUsers    []Point `json:"weekly_new_users"`
	OrgGrowth         []Point `json:"org_growth"`
	ChurnedOrgs       []Point `json:"churned_orgs"`
	Retention         []Point `json:"retention_4w"`
}

// Store runs one aggregate.
type Store interface {
	Series(ctx context.Context, q Query) ([]Point, error)
}

// Repository runs aggregates against Postgres.
type Repository struct {
	db database.DB
}

// NewRepository creates a stats repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Series runs q and reshapes its rows into points. NULL values become 0.
func (r *Repository) Series(ctx context.Context, q Query) ([]Point, error) {
	rows, err := r.db.Query(ctx, q.SQL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	defer rows.Close()
	points := []Point{}
	for rows.Next() {
		var t time.Time
		var v *float64
		if err := rows.Scan(&t, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", q.Name, err)
		}
		p := Point{Time: t}
		if v != nil {
			p.Value = *v
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	return points, nil
}

// Service assembles the dashboard.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a stats service.
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Collect runs all aggregates concurrently. The first failure cancels the rest
// and no partial dashboard is returned.
func (s *Service) Collect(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	jobs := []struct {
		q   Query
		dst *[]Point
	}{
		{weeklyActiveOrgs, &d.WeeklyActiveOrgs},
		{monthlyActiveOrgs, &d.MonthlyActiveOrgs},
		{weeklyNewUsers, &d.WeeklyNewUsers},
		{orgGrowth, &d.OrgGrowth},
		{churnedOrgs, &d.ChurnedOrgs},
		{retention, &d.Retention},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			points, err := s.store.Series(gctx, job.q)
			if err != nil {
				return err
			}
			*job.dst = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("stats aggregate failed", zap.Error(err))
		return nil, err
	}
	return &d, nil
}
