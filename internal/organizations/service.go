package organizations

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/apperr"
	"github.com/helicone-dashboard/backend/pkg/database"
)

// Store is the persistence the organization service needs.
type Store interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.OrganizationWithRole, error)
	GetForUser(ctx context.Context, orgID, userID uuid.UUID) (mo.Option[*models.OrganizationWithRole], error)
	GetByID(ctx context.Context, orgID uuid.UUID) (mo.Option[*models.Organization], error)
	Role(ctx context.Context, orgID, userID uuid.UUID) (string, error)
	Create(ctx context.Context, org *models.Organization) error
	EnsurePersonal(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error)
	Update(ctx context.Context, orgID uuid.UUID, p UpdateParams) (bool, error)
	SoftDelete(ctx context.Context, orgID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, orgID, userID uuid.UUID, role string) error
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]models.OrganizationMember, error)
	UpdateMemberRole(ctx context.Context, orgID, memberID uuid.UUID, role string) (bool, error)
	RemoveMember(ctx context.Context, orgID, memberID uuid.UUID) (bool, error)
	Owner(ctx context.Context, orgID, userID uuid.UUID) ([]models.OrganizationOwner, error)
	ListCustomers(ctx context.Context, resellerID uuid.UUID) ([]models.Organization, error)
}

// Inviter resolves an invitee email to a user, creating the account if needed.
type Inviter interface {
	EnsureInvitedUser(ctx context.Context, email, orgName string) (*models.User, error)
}

// ChangeNotifier is told when a user's set of organizations changed.
type ChangeNotifier interface {
	OrganizationsChanged(ctx context.Context, userIDs ...uuid.UUID)
}

// Service enforces organization access rules on top of the store.
type Service struct {
	store    Store
	inviter  Inviter
	notifier ChangeNotifier
	logger   *zap.Logger
}

// NewService creates an organization service. notifier may be nil.
func NewService(store Store, inviter Inviter, notifier ChangeNotifier, logger *zap.Logger) *Service {
	return &Service{store: store, inviter: inviter, notifier: notifier, logger: logger}
}

// SetNotifier wires the change notifier after construction.
func (s *Service) SetNotifier(n ChangeNotifier) { s.notifier = n }

func (s *Service) notify(ctx context.Context, userIDs ...uuid.UUID) {
	if s.notifier != nil && len(userIDs) > 0 {
		s.notifier.OrganizationsChanged(ctx, userIDs...)
	}
}

// List returns the caller's organizations. It never writes.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.OrganizationWithRole, error) {
	return s.store.ListForUser(ctx, userID)
}

// Get returns one organization visible to the caller.
func (s *Service) Get(ctx context.Context, orgID, userID uuid.UUID) (*models.OrganizationWithRole, error) {
	found, err := s.store.GetForUser(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	org, ok := found.Get()
	if !ok {
		return nil, apperr.NotFound("Organization not found")
	}
	return org, nil
}

// Role returns the caller's role in the organization, "" if none.
func (s *Service) Role(ctx context.Context, orgID, userID uuid.UUID) (string, error) {
	return s.store.Role(ctx, orgID, userID)
}

// CanMutate reports whether the caller administers the organization directly
// or through its reseller.
func (s *Service) CanMutate(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	found, err := s.store.GetByID(ctx, orgID)
	if err != nil {
		return false, err
	}
	org, ok := found.Get()
	if !ok {
		return false, nil
	}
	return s.canMutateOrg(ctx, org, userID)
}

func (s *Service) canMutateOrg(ctx context.Context, org *models.Organization, userID uuid.UUID) (bool, error) {
	role, err := s.store.Role(ctx, org.ID, userID)
	if err != nil {
		return false, err
	}
	if models.CanMutate(role) {
		return true, nil
	}
	if org.ResellerID == nil {
		return false, nil
	}
	return s.administersReseller(ctx, *org.ResellerID, userID)
}

func (s *Service) administersReseller(ctx context.Context, resellerID, userID uuid.UUID) (bool, error) {
	role, err := s.store.Role(ctx, resellerID, userID)
	if err != nil {
		return false, err
	}
	return models.CanMutate(role), nil
}

// loadMutable returns the organization if the caller may change it.
func (s *Service) loadMutable(ctx context.Context, orgID, userID uuid.UUID) (*models.Organization, error) {
	found, err := s.store.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	org, ok := found.Get()
	if !ok {
		return nil, apperr.NotFound("Organization not found")
	}
	allowed, err := s.canMutateOrg(ctx, org, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Forbidden("User does not have access to mutate organization")
	}
	return org, nil
}

// CreateParams is the input for Create.
type CreateParams struct {
	Name             string
	Color            string
	Icon             string
	Tier             string
	OrganizationType string
	ResellerID       *uuid.UUID
	Limits           *models.OrgLimits
}

// Create creates an organization owned by the caller.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, p CreateParams) (*models.Organization, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" || len(name) > 255 {
		return nil, apperr.InvalidInput("name must be 1-255 characters")
	}
	tier := p.Tier
	if tier == "" {
		tier = models.TierFree
	}
	if tier != models.TierFree {
		return nil, apperr.InvalidInput("Invalid tier")
	}
	orgType := p.OrganizationType
	if orgType == "" {
		orgType = models.OrgTypeStandard
	}
	org := &models.Organization{
		Name:             name,
		Owner:            userID,
		Color:            orDefault(p.Color, "gray"),
		Icon:             orDefault(p.Icon, "building"),
		Tier:             tier,
		OrganizationType: orgType,
	}

	switch orgType {
	case models.OrgTypeStandard:
	case models.OrgTypeCustomer:
		if p.ResellerID == nil {
			return nil, apperr.InvalidInput("reseller_id is required for customer organizations")
		}
		reseller, err := s.store.GetByID(ctx, *p.ResellerID)
		if err != nil {
			return nil, err
		}
		r, ok := reseller.Get()
		if !ok || r.OrganizationType != models.OrgTypeReseller {
			return nil, apperr.Forbidden("Must be a reseller to create a customer organization")
		}
		allowed, err := s.administersReseller(ctx, r.ID, userID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, apperr.Forbidden("Must be a reseller to create a customer organization")
		}
		org.ResellerID = p.ResellerID
		org.Limits = p.Limits
	default:
		return nil, apperr.InvalidInput("Invalid organization type")
	}

	if err := s.store.Create(ctx, org); err != nil {
		return nil, err
	}
	s.logger.Info("organization created", zap.String("org_id", org.ID.String()), zap.String("owner", userID.String()))
	s.notify(ctx, userID)
	return org, nil
}

// EnsurePersonal makes sure the caller has a personal organization.
func (s *Service) EnsurePersonal(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error) {
	id, created, err := s.store.EnsurePersonal(ctx, userID)
	if err != nil {
		return uuid.Nil, false, err
	}
	if created {
		s.logger.Info("personal organization created", zap.String("org_id", id.String()), zap.String("user_id", userID.String()))
		s.notify(ctx, userID)
	}
	return id, created, nil
}

// UpdateInput is the input for Update. Limits are only honored for reseller admins.
type UpdateInput struct {
	Name   *string
	Color  *string
	Icon   *string
	Limits *models.OrgLimits
}

// Update changes display fields of an organization.
func (s *Service) Update(ctx context.Context, orgID, userID uuid.UUID, in UpdateInput) error {
	org, err := s.loadMutable(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		if n == "" || len(n) > 255 {
			return apperr.InvalidInput("name must be 1-255 characters")
		}
		in.Name = &n
	}
	params := UpdateParams{Name: in.Name, Color: in.Color, Icon: in.Icon}
	if in.Limits != nil {
		if org.ResellerID == nil {
			return apperr.Forbidden("Limits can only be set by a reseller")
		}
		allowed, err := s.administersReseller(ctx, *org.ResellerID, userID)
		if err != nil {
			return err
		}
		if !allowed {
			return apperr.Forbidden("Limits can only be set by a reseller")
		}
		params.Limits = in.Limits
	}
	ok, err := s.store.Update(ctx, orgID, params)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Organization not found")
	}
	return nil
}

// Delete soft-deletes an organization and tells its members to refresh.
func (s *Service) Delete(ctx context.Context, orgID, userID uuid.UUID) error {
	org, err := s.loadMutable(ctx, orgID, userID)
	if err != nil {
		return err
	}
	members, err := s.store.ListMembers(ctx, orgID)
	if err != nil {
		return err
	}
	ok, err := s.store.SoftDelete(ctx, orgID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Organization not found")
	}
	s.logger.Info("organization deleted", zap.String("org_id", orgID.String()), zap.String("by", userID.String()))

	affected := []uuid.UUID{org.Owner}
	for _, m := range members {
		if m.MemberID != org.Owner {
			affected = append(affected, m.MemberID)
		}
	}
	s.notify(ctx, affected...)
	return nil
}

// AddMember invites email into the organization as a member.
func (s *Service) AddMember(ctx context.Context, orgID, userID uuid.UUID, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.InvalidInput("email is required")
	}
	org, err := s.loadMutable(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	invitee, err := s.inviter.EnsureInvitedUser(ctx, email, org.Name)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddMember(ctx, orgID, invitee.ID, models.OrgRoleMember); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Conflict("User already added")
		}
		return nil, err
	}
	s.notify(ctx, invitee.ID)
	return invitee, nil
}

// ListMembers returns members of an organization the caller belongs to.
func (s *Service) ListMembers(ctx context.Context, orgID, userID uuid.UUID) ([]models.OrganizationMember, error) {
	role, err := s.store.Role(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, apperr.Forbidden("No access to org")
	}
	return s.store.ListMembers(ctx, orgID)
}

// UpdateMember changes another member's role.
func (s *Service) UpdateMember(ctx context.Context, orgID, userID, memberID uuid.UUID, role string) error {
	if !models.IsValidRole(role) {
		return apperr.InvalidInput("role must be admin or member")
	}
	org, err := s.loadMutable(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if memberID == org.Owner {
		return apperr.Forbidden("Cannot change the owner's role")
	}
	ok, err := s.store.UpdateMemberRole(ctx, orgID, memberID, role)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Member not found")
	}
	return nil
}

// RemoveMember removes a member from the organization.
func (s *Service) RemoveMember(ctx context.Context, orgID, userID, memberID uuid.UUID) error {
	org, err := s.loadMutable(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if memberID == org.Owner {
		return apperr.Forbidden("Cannot remove the owner")
	}
	ok, err := s.store.RemoveMember(ctx, orgID, memberID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Member not found")
	}
	s.notify(ctx, memberID)
	return nil
}

// Owner returns the owner summary of an organization the caller can see.
func (s *Service) Owner(ctx context.Context, orgID, userID uuid.UUID) ([]models.OrganizationOwner, error) {
	owners, err := s.store.Owner(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		return nil, apperr.Forbidden("No access to org")
	}
	return owners, nil
}

// ListCustomers returns the customers of a reseller the caller administers.
func (s *Service) ListCustomers(ctx context.Context, resellerID, userID uuid.UUID) ([]models.Organization, error) {
	allowed, err := s.administersReseller(ctx, resellerID, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Forbidden("User does not have access to reseller")
	}
	return s.store.ListCustomers(ctx, resellerID)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
