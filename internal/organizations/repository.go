package organizations

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/mo"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/database"
)

// Repository handles organization and organization_member persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an organizations repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

const orgColumns = `o.id, o.name, o.owner, o.color, o.icon, o.tier, o.organization_type, o.reseller_id,
	o.limits, o.is_personal, o.has_onboarded, o.onboarding_status, o.stripe_customer_id,
	o.stripe_subscription_id, o.created_at`

func orgDest(o *models.Organization) []any {
	return []any{&o.ID, &o.Name, &o.Owner, &o.Color, &o.Icon, &o.Tier, &o.OrganizationType, &o.ResellerID,
		&o.Limits, &o.IsPersonal, &o.HasOnboarded, &o.OnboardingStatus, &o.StripeCustomerID,
		&o.StripeSubscriptionID, &o.CreatedAt}
}

const userOrgQuery = `SELECT ` + orgColumns + `,
	CASE WHEN o.owner = $1 THEN 'owner' ELSE om.org_role END
	FROM organization o
	LEFT JOIN organization_member om ON om.organization = o.id AND om.member = $1
	WHERE o.soft_delete = false AND (om.member = $1 OR o.owner = $1)`

// ListForUser returns the non-deleted organizations the user owns or belongs to.
// Personal organizations come first, then by creation time.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.OrganizationWithRole, error) {
	rows, err := r.db.Query(ctx, userOrgQuery+` ORDER BY o.is_personal DESC, o.created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()
	list := []models.OrganizationWithRole{}
	for rows.Next() {
		var o models.OrganizationWithRole
		if err := rows.Scan(append(orgDest(&o.Organization), &o.Role)...); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// GetForUser returns one organization if the user can see it.
func (r *Repository) GetForUser(ctx context.Context, orgID, userID uuid.UUID) (mo.Option[*models.OrganizationWithRole], error) {
	var o models.OrganizationWithRole
	err := r.db.QueryRow(ctx, userOrgQuery+` AND o.id = $2`, userID, orgID).
		Scan(append(orgDest(&o.Organization), &o.Role)...)
	if database.IsNoRows(err) {
		return mo.None[*models.OrganizationWithRole](), nil
	}
	if err != nil {
		return mo.None[*models.OrganizationWithRole](), fmt.Errorf("get organization: %w", err)
	}
	return mo.Some(&o), nil
}

// GetByID returns a non-deleted organization.
func (r *Repository) GetByID(ctx context.Context, orgID uuid.UUID) (mo.Option[*models.Organization], error) {
	var o models.Organization
	err := r.db.QueryRow(ctx, `SELECT `+orgColumns+` FROM organization o WHERE o.id = $1 AND o.soft_delete = false`, orgID).
		Scan(orgDest(&o)...)
	if database.IsNoRows(err) {
		return mo.None[*models.Organization](), nil
	}
	if err != nil {
		return mo.None[*models.Organization](), fmt.Errorf("get organization: %w", err)
	}
	return mo.Some(&o), nil
}

// Role returns the user's role in a non-deleted organization, or "" when
// the user has none.
func (r *Repository) Role(ctx context.Context, orgID, userID uuid.UUID) (string, error) {
	const q = `SELECT CASE WHEN o.owner = $2 THEN 'owner' ELSE COALESCE(om.org_role, '') END
		FROM organization o
		LEFT JOIN organization_member om ON om.organization = o.id AND om.member = $2
		WHERE o.id = $1 AND o.soft_delete = false`
	var role string
	err := r.db.QueryRow(ctx, q, orgID, userID).Scan(&role)
	if database.IsNoRows(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// Create inserts the organization and its owner membership in one transaction.
func (r *Repository) Create(ctx context.Context, org *models.Organization) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `INSERT INTO organization (name, owner, color, icon, tier, organization_type, reseller_id, limits)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	err = tx.QueryRow(ctx, q, org.Name, org.Owner, org.Color, org.Icon, org.Tier, org.OrganizationType, org.ResellerID, org.Limits).
		Scan(&org.ID, &org.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}
	if err := addMember(ctx, tx, org.ID, org.Owner, models.OrgRoleOwner); err != nil {
		return fmt.Errorf("insert owner membership: %w", err)
	}
	return tx.Commit(ctx)
}

// EnsurePersonal creates the user's personal organization unless one exists.
// It is safe to call repeatedly and concurrently.
func (r *Repository) EnsurePersonal(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insert = `INSERT INTO organization (name, owner, tier, is_personal, has_onboarded, soft_delete)
		SELECT 'My Organization', $1, 'free', true, false, false
		WHERE NOT EXISTS (
			SELECT 1 FROM organization WHERE owner = $1 AND is_personal = true AND soft_delete = false
		)
		ON CONFLICT (owner) WHERE is_personal = true AND soft_delete = false DO NOTHING
		RETURNING id`
	var id uuid.UUID
	err = tx.QueryRow(ctx, insert, userID).Scan(&id)
	if err != nil && !database.IsNoRows(err) {
		return uuid.Nil, false, fmt.Errorf("insert personal organization: %w", err)
	}
	if err == nil {
		if err := addMember(ctx, tx, id, userID, models.OrgRoleOwner); err != nil {
			return uuid.Nil, false, fmt.Errorf("insert owner membership: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return uuid.Nil, false, err
		}
		return id, true, nil
	}

	const existing = `SELECT id FROM organization WHERE owner = $1 AND is_personal = true AND soft_delete = false`
	if err := tx.QueryRow(ctx, existing, userID).Scan(&id); err != nil {
		return uuid.Nil, false, fmt.Errorf("select personal organization: %w", err)
	}
	return id, false, tx.Commit(ctx)
}

// UpdateParams holds optional organization fields. Nil leaves the column unchanged.
type UpdateParams struct {
	Name   *string
	Color  *string
	Icon   *string
	Limits *models.OrgLimits
}

// Update applies params to a non-deleted organization.
func (r *Repository) Update(ctx context.Context, orgID uuid.UUID, p UpdateParams) (bool, error) {
	const q = `UPDATE organization SET
		name = COALESCE($2, name),
		color = COALESCE($3, color),
		icon = COALESCE($4, icon),
		limits = COALESCE($5, limits)
		WHERE id = $1 AND soft_delete = false`
	tag, err := r.db.Exec(ctx, q, orgID, p.Name, p.Color, p.Icon, p.Limits)
	if err != nil {
		return false, fmt.Errorf("update organization: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SoftDelete marks the organization deleted. Rows are kept for billing history.
func (r *Repository) SoftDelete(ctx context.Context, orgID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE organization SET soft_delete = true WHERE id = $1 AND soft_delete = false`, orgID)
	if err != nil {
		return false, fmt.Errorf("delete organization: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func addMember(ctx context.Context, tx pgx.Tx, orgID, userID uuid.UUID, role string) error {
	_, err := tx.Exec(ctx, `INSERT INTO organization_member (organization, member, org_role) VALUES ($1, $2, $3)
		ON CONFLICT (organization, member) DO NOTHING`, orgID, userID, role)
	return err
}

// AddMember inserts one membership row. A duplicate surfaces as a unique violation.
func (r *Repository) AddMember(ctx context.Context, orgID, userID uuid.UUID, role string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO organization_member (organization, member, org_role) VALUES ($1, $2, $3)`,
		orgID, userID, role)
	return err
}

// ListMembers returns the organization's members with their emails.
func (r *Repository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]models.OrganizationMember, error) {
	const q = `SELECT om.organization, om.member, u.email, om.org_role, om.created_at
		FROM organization_member om
		JOIN users u ON u.id = om.member
		WHERE om.organization = $1
		ORDER BY om.created_at ASC`
	rows, err := r.db.Query(ctx, q, orgID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()
	members := []models.OrganizationMember{}
	for rows.Next() {
		var m models.OrganizationMember
		if err := rows.Scan(&m.OrganizationID, &m.MemberID, &m.Email, &m.OrgRole, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpdateMemberRole changes a member's role.
func (r *Repository) UpdateMemberRole(ctx context.Context, orgID, memberID uuid.UUID, role string) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE organization_member SET org_role = $3 WHERE organization = $1 AND member = $2`,
		orgID, memberID, role)
	if err != nil {
		return false, fmt.Errorf("update member: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveMember deletes a membership row.
func (r *Repository) RemoveMember(ctx context.Context, orgID, memberID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM organization_member WHERE organization = $1 AND member = $2`, orgID, memberID)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Owner returns the owner's email and tier. The caller check is part of the
// query, so an empty result means no access.
func (r *Repository) Owner(ctx context.Context, orgID, userID uuid.UUID) ([]models.OrganizationOwner, error) {
	const q = `SELECT u.email, COALESCE(us.tier, o.tier)
		FROM organization o
		JOIN users u ON u.id = o.owner
		LEFT JOIN user_settings us ON us."user" = o.owner
		WHERE o.id = $1 AND o.soft_delete = false
		AND (o.owner = $2 OR EXISTS (
			SELECT 1 FROM organization_member om WHERE om.organization = o.id AND om.member = $2
		))`
	rows, err := r.db.Query(ctx, q, orgID, userID)
	if err != nil {
		return nil, fmt.Errorf("get owner: %w", err)
	}
	defer rows.Close()
	owners := []models.OrganizationOwner{}
	for rows.Next() {
		var o models.OrganizationOwner
		if err := rows.Scan(&o.Email, &o.Tier); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

// ListCustomers returns the customer organizations of a reseller.
func (r *Repository) ListCustomers(ctx context.Context, resellerID uuid.UUID) ([]models.Organization, error) {
	q := `SELECT ` + orgColumns + ` FROM organization o
		WHERE o.reseller_id = $1 AND o.organization_type = 'customer' AND o.soft_delete = false
		ORDER BY o.created_at ASC`
	rows, err := r.db.Query(ctx, q, resellerID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()
	orgs := []models.Organization{}
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(orgDest(&o)...); err != nil {
			return nil, err
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

// UpdateOnboarding persists the onboarding wizard state.
func (r *Repository) UpdateOnboarding(ctx context.Context, orgID uuid.UUID, status models.OnboardingStatus, done bool) error {
	_, err := r.db.Exec(ctx, `UPDATE organization SET onboarding_status = $2, has_onboarded = $3 WHERE id = $1 AND soft_delete = false`,
		orgID, status, done)
	return err
}

// SetStripeCustomer records the payment customer for an organization.
func (r *Repository) SetStripeCustomer(ctx context.Context, orgID uuid.UUID, customerID string) error {
	_, err := r.db.Exec(ctx, `UPDATE organization SET stripe_customer_id = $2 WHERE id = $1`, orgID, customerID)
	return err
}

// UpdateSubscription sets tier and subscription for the organization billed to customerID.
func (r *Repository) UpdateSubscription(ctx context.Context, customerID, tier string, subscriptionID *string) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE organization SET tier = $2, stripe_subscription_id = $3 WHERE stripe_customer_id = $1`,
		customerID, tier, subscriptionID)
	if err != nil {
		return false, fmt.Errorf("update subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
