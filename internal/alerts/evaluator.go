package alerts

import (
	"time"

	"github.com/samber/mo"

	"github.com/helicone-dashboard/backend/internal/models"
)

// CooldownPeriod is how long a triggered alert must stay below its threshold before it resolves.
const CooldownPeriod = 5 * time.Minute

// Measurement is the aggregate of one alert window.
type Measurement struct {
	Value        float64
	RequestCount int64
}

// Transition is the state change decided for one alert.
type Transition int

const (
	Unchanged Transition = iota
	Triggered
	Resolved
)

// CooldownAction tells the caller what to do with the stored cooldown start.
type CooldownAction int

const (
	CooldownKeep CooldownAction = iota
	CooldownStart
	CooldownClear
)

// Decision is the outcome of evaluating one alert.
type Decision struct {
	Transition Transition
	Cooldown   CooldownAction
	Value      float64
}

// Evaluate decides the next state of an alert from its current window.
// A resolved alert triggers once the value reaches the threshold with enough
// requests. A triggered alert resolves after CooldownPeriod spent below it.
func Evaluate(a models.Alert, m Measurement, cooldownStart mo.Option[time.Time], now time.Time) Decision {
	d := Decision{Value: m.Value}
	above := m.Value >= a.Threshold

	if a.Status == models.AlertStatusResolved {
		if above && m.RequestCount >= int64(a.MinimumRequestCount) {
			d.Transition = Triggered
			d.Cooldown = CooldownClear
		}
		return d
	}

	if above {
		if cooldownStart.IsPresent() {
			d.Cooldown = CooldownClear
		}
		return d
	}
	start, ok := cooldownStart.Get()
	if !ok {
		d.Cooldown = CooldownStart
		return d
	}
	if now.Sub(start) >= CooldownPeriod {
		d.Transition = Resolved
		d.Cooldown = CooldownClear
	}
	return d
}
