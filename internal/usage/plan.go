package usage

import (
	"math"
	"time"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/utils"
)

// FreeTierLimit is the monthly request allowance of the free tier.
const FreeTierLimit int64 = 100_000

// Summary is the usage page for one organization and month.
type Summary struct {
	Month            string  `json:"month"`
	RequestCount     int64   `json:"request_count"`
	Tier             string  `json:"tier"`
	DisplayTier      string  `json:"display_tier"`
	Limit            *int64  `json:"limit"`
	Percent          float64 `json:"percent"`
	Capped           bool    `json:"capped"`
	UpgradePrompt    bool    `json:"upgrade_prompt"`
	NextMonthAllowed bool    `json:"next_month_allowed"`
}

// limitFor returns the monthly request cap; false means uncapped. A request
// limit set on the organization by its reseller wins over the tier default.
func limitFor(tier string, limits *models.OrgLimits) (int64, bool) {
	if limits != nil && limits.Requests > 0 {
		return limits.Requests, true
	}
	switch tier {
	case models.TierPro, models.TierEnterprise, models.TierBasicFlex:
		return 0, false
	default:
		return FreeTierLimit, true
	}
}

// Summarize builds the usage summary. month is the first instant of the month
// shown and now decides whether the next month can be browsed.
func Summarize(tier string, limits *models.OrgLimits, count int64, month, now time.Time) Summary {
	s := Summary{
		Month:        month.Format("2006-01"),
		RequestCount: count,
		Tier:         tier,
		DisplayTier:  utils.CapitalizeWords(tier),
	}
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	s.NextMonthAllowed = month.Before(current)

	limit, capped := limitFor(tier, limits)
	if !capped {
		return s
	}
	s.Limit = &limit
	s.Capped = true
	s.Percent = math.Min(100, math.Round(float64(count)/float64(limit)*10000)/100)
	s.UpgradePrompt = count >= limit
	return s
}

// ParseMonth reads YYYY-MM, defaulting to the month of now.
func ParseMonth(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01", v)
}
