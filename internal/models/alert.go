package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert metrics.
const (
	AlertMetricStatus  = "response.status"
	AlertMetricCost    = "cost"
	AlertMetricLatency = "latency"
)

// Alert states.
const (
	AlertStatusResolved  = "resolved"
	AlertStatusTriggered = "triggered"
)

// Alert watches one metric of an organization's traffic.
type Alert struct {
	ID                  uuid.UUID  `json:"id"`
	OrgID               uuid.UUID  `json:"org_id"`
	Name                string     `json:"name"`
	Metric              string     `json:"metric"`
	Threshold           float64    `json:"threshold"`
	TimeWindowMs        int64      `json:"time_window"`
	MinimumRequestCount int        `json:"minimum_request_count"`
	Emails              []string   `json:"emails"`
	SlackChannels       []string   `json:"slack_channels"`
	Status              string     `json:"status"`
	TriggeredAt         *time.Time `json:"triggered_at"`
	CreatedAt           time.Time  `json:"created_at"`
}

// AlertHistory is one state transition of an alert.
type AlertHistory struct {
	ID             uuid.UUID  `json:"id"`
	AlertID        uuid.UUID  `json:"alert_id"`
	OrgID          uuid.UUID  `json:"org_id"`
	AlertName      string     `json:"alert_name"`
	AlertMetric    string     `json:"alert_metric"`
	AlertThreshold float64    `json:"alert_threshold"`
	TriggeredValue float64    `json:"triggered_value"`
	Status         string     `json:"status"`
	AlertStartTime time.Time  `json:"alert_start_time"`
	AlertEndTime   *time.Time `json:"alert_end_time"`
	CreatedAt      time.Time  `json:"created_at"`
}
