package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/helicone-dashboard/backend/internal/usage"
	"github.com/helicone-dashboard/backend/pkg/storage"
)

// Counter returns request counts bucketed by increment.
type Counter interface {
	CountOverTime(ctx context.Context, orgID uuid.UUID, from, to time.Time, increment string) ([]usage.Point, error)
}

// ObjectStore uploads report files and hands out download links.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	PresignDownload(ctx context.Context, key string) (string, error)
}

// Report is a generated file and its download link.
type Report struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Month string `json:"month"`
	Days  int    `json:"days"`
	Total int64  `json:"total"`
}

// Generator renders monthly usage reports.
type Generator struct {
	counter Counter
	store   ObjectStore
}

// NewGenerator creates a report generator.
func NewGenerator(counter Counter, store ObjectStore) *Generator {
	return &Generator{counter: counter, store: store}
}

// MonthlyUsage writes one CSV row per day of month, including days without requests.
func (g *Generator) MonthlyUsage(ctx context.Context, orgID uuid.UUID, month time.Time) (*Report, error) {
	end := month.AddDate(0, 1, 0)
	points, err := g.counter.CountOverTime(ctx, orgID, month, end, usage.IncrementDay)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]int64, len(points))
	for _, p := range points {
		byDay[p.Time.UTC().Format("2006-01-02")] += p.Count
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"date", "requests"})
	report := &Report{Month: month.Format("2006-01")}
	for d := month; d.Before(end); d = d.AddDate(0, 0, 1) {
		day := d.Format("2006-01-02")
		n := byDay[day]
		report.Total += n
		report.Days++
		_ = w.Write([]string{day, strconv.FormatInt(n, 10)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}

	report.Key = storage.ReportKey(orgID.String(), report.Month)
	if err := g.store.Upload(ctx, report.Key, "text/csv", &buf); err != nil {
		return nil, err
	}
	if report.URL, err = g.store.PresignDownload(ctx, report.Key); err != nil {
		return nil, err
	}
	return report, nil
}
