package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization roles.
const (
	OrgRoleOwner  = "owner"
	OrgRoleAdmin  = "admin"
	OrgRoleMember = "member"
)

// Organization tiers.
const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
	TierBasicFlex  = "basic_flex"
)

// Organization types.
const (
	OrgTypeStandard = "standard"
	OrgTypeCustomer = "customer"
	OrgTypeReseller = "reseller"
)

// OrgLimits caps spend and request volume for reseller customers.
type OrgLimits struct {
	Cost     float64 `json:"cost"`
	Requests int64   `json:"requests"`
}

// OnboardingStatus is stored as JSONB on the organization row.
type OnboardingStatus struct {
	Step string `json:"step,omitempty"`
}

// Organization is a tenant that owns keys, requests and alerts.
type Organization struct {
	ID                   uuid.UUID        `json:"id"`
	Name                 string           `json:"name"`
	Owner                uuid.UUID        `json:"owner"`
	Color                string           `json:"color"`
	Icon                 string           `json:"icon"`
	Tier                 string           `json:"tier"`
	OrganizationType     string           `json:"organization_type"`
	ResellerID           *uuid.UUID       `json:"reseller_id"`
	Limits               *OrgLimits       `json:"limits"`
	IsPersonal           bool             `json:"is_personal"`
	HasOnboarded         bool             `json:"has_onboarded"`
	OnboardingStatus     OnboardingStatus `json:"onboarding_status"`
	StripeCustomerID     *string          `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string          `json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
}

// OrganizationWithRole is an organization as seen by one user.
type OrganizationWithRole struct {
	Organization
	Role string `json:"role"`
}

// OrganizationMember links a user to an organization with a role.
type OrganizationMember struct {
	OrganizationID uuid.UUID `json:"organization"`
	MemberID       uuid.UUID `json:"member"`
	Email          string    `json:"email"`
	OrgRole        string    `json:"org_role"`
	CreatedAt      time.Time `json:"created_at"`
}

// OrganizationOwner is the owner summary shown on the members page.
type OrganizationOwner struct {
	Email string `json:"email"`
	Tier  string `json:"tier"`
}

// IsValidRole reports whether role can be assigned to a member.
func IsValidRole(role string) bool {
	return role == OrgRoleAdmin || role == OrgRoleMember
}

// CanMutate reports whether role may change organization settings and membership.
func CanMutate(role string) bool {
	return role == OrgRoleOwner || role == OrgRoleAdmin
}
