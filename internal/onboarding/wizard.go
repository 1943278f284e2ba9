// Package onboarding tracks the linear setup wizard shown to new organizations.
package onboarding

import (
	"fmt"

	"github.com/helicone-dashboard/backend/internal/models"
)

// Wizard steps, in order.
const (
	StepCreateOrganization = "create_organization"
	StepIntegrate          = "integrate"
	StepSelectPlan         = "select_plan"
)

// Steps lists the wizard in order.
var Steps = []string{StepCreateOrganization, StepIntegrate, StepSelectPlan}

// Actions accepted by Advance.
const (
	ActionNext = "next"
	ActionBack = "back"
)

// State is the wizard position of one organization.
type State struct {
	Step         string `json:"step"`
	StepIndex    int    `json:"step_index"`
	TotalSteps   int    `json:"total_steps"`
	HasOnboarded bool   `json:"has_onboarded"`
}

// FromOrganization reads the wizard state stored on org.
func FromOrganization(org *models.Organization) State {
	idx := indexOf(org.OnboardingStatus.Step)
	if idx < 0 {
		idx = 0
	}
	return State{Step: Steps[idx], StepIndex: idx, TotalSteps: len(Steps), HasOnboarded: org.HasOnboarded}
}

// Advance applies action. Going back from the first step is a no-op; going
// next from the last step completes onboarding.
func Advance(s State, action string) (State, error) {
	switch action {
	case ActionNext:
		if s.StepIndex == len(Steps)-1 {
			s.HasOnboarded = true
			return s, nil
		}
		s.StepIndex++
	case ActionBack:
		if s.StepIndex > 0 {
			s.StepIndex--
		}
	default:
		return s, fmt.Errorf("unknown action %q", action)
	}
	s.Step = Steps[s.StepIndex]
	return s, nil
}

func indexOf(step string) int {
	for i, s := range Steps {
		if s == step {
			return i
		}
	}
	return -1
}
