package alerts

import (
	"strings"
	"time"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/apperr"
)

// Evaluation window bounds. The binding tags on CreateAlertRequest mirror them in milliseconds.
const (
	MinTimeWindow = 5 * time.Minute
	MaxTimeWindow = 30 * 24 * time.Hour
)

// CreateAlertRequest is the body for POST /api/organization/:id/alerts.
type CreateAlertRequest struct {
	Name                string   `json:"name" binding:"required,max=200"`
	Metric              string   `json:"metric" binding:"required,oneof=response.status cost latency"`
	Threshold           float64  `json:"threshold" binding:"gt=0"`
	TimeWindowMs        int64    `json:"time_window" binding:"required,min=300000,max=2592000000"`
	MinimumRequestCount int      `json:"minimum_request_count" binding:"min=0"`
	Emails              []string `json:"emails" binding:"omitempty,dive,email"`
	SlackChannels       []string `json:"slack_channels"`
}

// Validate applies the rules binding tags cannot express. Call it after ShouldBindJSON.
func (r *CreateAlertRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return apperr.InvalidInput("name is required")
	}
	if r.Metric == models.AlertMetricStatus && r.Threshold > 100 {
		return apperr.InvalidInput("threshold must be a percentage between 0 and 100")
	}
	if r.TimeWindowMs < MinTimeWindow.Milliseconds() || r.TimeWindowMs > MaxTimeWindow.Milliseconds() {
		return apperr.InvalidInput("time_window must be between 5 minutes and 30 days")
	}
	r.SlackChannels = compact(r.SlackChannels)
	if len(r.Emails) == 0 && len(r.SlackChannels) == 0 {
		return apperr.InvalidInput("at least one email or slack channel is required")
	}
	return nil
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
