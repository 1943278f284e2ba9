package organizations

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/mo"

	"github.com/helicone-dashboard/backend/internal/models"
)

// memStore is an in-memory Store with the same uniqueness rules as the schema.
type memStore struct {
	mu         sync.Mutex
	orgs       map[uuid.UUID]*models.Organization
	deleted    map[uuid.UUID]bool
	members    map[uuid.UUID]map[uuid.UUID]string
	emails     map[uuid.UUID]string
	memberAdds int
}

func newMemStore() *memStore {
	return &memStore{
		orgs:    map[uuid.UUID]*models.Organization{},
		deleted: map[uuid.UUID]bool{},
		members: map[uuid.UUID]map[uuid.UUID]string{},
		emails:  map[uuid.UUID]string{},
	}
}

func (m *memStore) seedOrg(owner uuid.UUID, mutate func(o *models.Organization)) *models.Organization {
	o := &models.Organization{ID: uuid.New(), Name: "Org", Owner: owner, Tier: models.TierFree, OrganizationType: models.OrgTypeStandard}
	if mutate != nil {
		mutate(o)
	}
	m.orgs[o.ID] = o
	m.members[o.ID] = map[uuid.UUID]string{owner: models.OrgRoleOwner}
	return o
}

func (m *memStore) roleLocked(orgID, userID uuid.UUID) string {
	o, ok := m.orgs[orgID]
	if !ok || m.deleted[orgID] {
		return ""
	}
	if o.Owner == userID {
		return models.OrgRoleOwner
	}
	return m.members[orgID][userID]
}

func (m *memStore) ListForUser(_ context.Context, userID uuid.UUID) ([]models.OrganizationWithRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.OrganizationWithRole{}
	for id, o := range m.orgs {
		if role := m.roleLocked(id, userID); role != "" {
			out = append(out, models.OrganizationWithRole{Organization: *o, Role: role})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) GetForUser(_ context.Context, orgID, userID uuid.UUID) (mo.Option[*models.OrganizationWithRole], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role := m.roleLocked(orgID, userID)
	if role == "" {
		return mo.None[*models.OrganizationWithRole](), nil
	}
	return mo.Some(&models.OrganizationWithRole{Organization: *m.orgs[orgID], Role: role}), nil
}

func (m *memStore) GetByID(_ context.Context, orgID uuid.UUID) (mo.Option[*models.Organization], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orgs[orgID]
	if !ok || m.deleted[orgID] {
		return mo.None[*models.Organization](), nil
	}
	cp := *o
	return mo.Some(&cp), nil
}

func (m *memStore) Role(_ context.Context, orgID, userID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roleLocked(orgID, userID), nil
}

func (m *memStore) Create(_ context.Context, org *models.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	org.ID = uuid.New()
	cp := *org
	m.orgs[org.ID] = &cp
	m.members[org.ID] = map[uuid.UUID]string{org.Owner: models.OrgRoleOwner}
	return nil
}

func (m *memStore) EnsurePersonal(_ context.Context, userID uuid.UUID) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range m.orgs {
		if o.Owner == userID && o.IsPersonal && !m.deleted[id] {
			return id, false, nil
		}
	}
	o := &models.Organization{ID: uuid.New(), Name: "My Organization", Owner: userID, Tier: models.TierFree, IsPersonal: true}
	m.orgs[o.ID] = o
	m.members[o.ID] = map[uuid.UUID]string{userID: models.OrgRoleOwner}
	return o.ID, true, nil
}

func (m *memStore) Update(_ context.Context, orgID uuid.UUID, p UpdateParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orgs[orgID]
	if !ok || m.deleted[orgID] {
		return false, nil
	}
	if p.Name != nil {
		o.Name = *p.Name
	}
	if p.Limits != nil {
		o.Limits = p.Limits
	}
	return true, nil
}

func (m *memStore) SoftDelete(_ context.Context, orgID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[orgID]; !ok || m.deleted[orgID] {
		return false, nil
	}
	m.deleted[orgID] = true
	return true, nil
}

func (m *memStore) AddMember(_ context.Context, orgID, userID uuid.UUID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.members[orgID][userID]; exists {
		return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	}
	if m.members[orgID] == nil {
		m.members[orgID] = map[uuid.UUID]string{}
	}
	m.members[orgID][userID] = role
	m.memberAdds++
	return nil
}

func (m *memStore) ListMembers(_ context.Context, orgID uuid.UUID) ([]models.OrganizationMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.OrganizationMember{}
	for id, role := range m.members[orgID] {
		out = append(out, models.OrganizationMember{OrganizationID: orgID, MemberID: id, Email: m.emails[id], OrgRole: role})
	}
	return out, nil
}

func (m *memStore) UpdateMemberRole(_ context.Context, orgID, memberID uuid.UUID, role string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[orgID][memberID]; !ok {
		return false, nil
	}
	m.members[orgID][memberID] = role
	return true, nil
}

func (m *memStore) RemoveMember(_ context.Context, orgID, memberID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[orgID][memberID]; !ok {
		return false, nil
	}
	delete(m.members[orgID], memberID)
	return true, nil
}

func (m *memStore) Owner(_ context.Context, orgID, userID uuid.UUID) ([]models.OrganizationOwner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roleLocked(orgID, userID) == "" {
		return []models.OrganizationOwner{}, nil
	}
	o := m.orgs[orgID]
	return []models.OrganizationOwner{{Email: m.emails[o.Owner], Tier: o.Tier}}, nil
}

func (m *memStore) ListCustomers(_ context.Context, resellerID uuid.UUID) ([]models.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Organization{}
	for id, o := range m.orgs {
		if o.ResellerID != nil && *o.ResellerID == resellerID && !m.deleted[id] {
			out = append(out, *o)
		}
	}
	return out, nil
}

// fakeInviter creates users on demand and counts creations.
type fakeInviter struct {
	store   *memStore
	byEmail map[string]*models.User
	created int
}

func newFakeInviter(store *memStore) *fakeInviter {
	return &fakeInviter{store: store, byEmail: map[string]*models.User{}}
}

func (f *fakeInviter) add(email string) *models.User {
	u := &models.User{ID: uuid.New(), Email: email}
	f.byEmail[email] = u
	f.store.emails[u.ID] = email
	return u
}

func (f *fakeInviter) EnsureInvitedUser(_ context.Context, email, _ string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	f.created++
	return f.add(email), nil
}

type recordingNotifier struct {
	users []uuid.UUID
}

func (r *recordingNotifier) OrganizationsChanged(_ context.Context, userIDs ...uuid.UUID) {
	r.users = append(r.users, userIDs...)
}
