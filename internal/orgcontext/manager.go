package orgcontext

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/models"
)

// Lister reads the organizations visible to a user. It must not write.
type Lister interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.OrganizationWithRole, error)
}

// Publisher pushes an event to a user's live connections.
type Publisher interface {
	PublishUserEvent(ctx context.Context, userID uuid.UUID, event string, payload interface{})
}

// Snapshot is the organization context of one user.
type Snapshot struct {
	Organizations []models.OrganizationWithRole `json:"organizations"`
	Current       *models.OrganizationWithRole  `json:"current"`
}

func snapshotOf(orgs []models.OrganizationWithRole, current *uuid.UUID) Snapshot {
	snap := Snapshot{Organizations: orgs}
	if current != nil {
		if i := indexOf(orgs, *current); i >= 0 {
			org := orgs[i]
			snap.Current = &org
		}
	}
	if snap.Organizations == nil {
		snap.Organizations = []models.OrganizationWithRole{}
	}
	return snap
}

// lockStripes bounds the per-user locks held by one process.
const lockStripes = 64

// Manager owns the current-organization selection of each user. The selection
// lives only in the SelectionStore; every call re-reads it together with the
// organization list, so all instances sharing the store agree.
type Manager struct {
	lister    Lister
	store     SelectionStore
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time

	locks [lockStripes]sync.Mutex
}

// NewManager creates a manager. publisher may be nil.
func NewManager(lister Lister, store SelectionStore, publisher Publisher, logger *zap.Logger) *Manager {
	return &Manager{
		lister:    lister,
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (m *Manager) lock(userID uuid.UUID) func() {
	mu := &m.locks[binary.BigEndian.Uint32(userID[12:])%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// read returns the user's organizations and the stored selection.
func (m *Manager) read(ctx context.Context, userID uuid.UUID) ([]models.OrganizationWithRole, *uuid.UUID, error) {
	orgs, err := m.lister.List(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	stored, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("read org selection: %w", err)
	}
	if id, ok := stored.Get(); ok {
		return orgs, &id, nil
	}
	return orgs, nil, nil
}

func indexOf(orgs []models.OrganizationWithRole, id uuid.UUID) int {
	for i := range orgs {
		if orgs[i].ID == id {
			return i
		}
	}
	return -1
}

// defaultChoice is the personal organization of the user, else the first one.
func defaultChoice(orgs []models.OrganizationWithRole, userID uuid.UUID) *uuid.UUID {
	if len(orgs) == 0 {
		return nil
	}
	for _, o := range orgs {
		if o.IsPersonal && o.Owner == userID {
			id := o.ID
			return &id
		}
	}
	id := orgs[0].ID
	return &id
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Load lists the user's organizations and restores the stored selection if it is
// still listed, else picks the personal organization, else the first.
func (m *Manager) Load(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	return m.resolve(ctx, userID, ReasonLoad)
}

// SetCurrent selects orgID. It is a no-op returning changed=false when orgID is
// not one of the user's organizations or is already current.
func (m *Manager) SetCurrent(ctx context.Context, userID, orgID uuid.UUID) (Snapshot, bool, error) {
	defer m.lock(userID)()
	orgs, stored, err := m.read(ctx, userID)
	if err != nil {
		return Snapshot{}, false, err
	}
	current := choose(orgs, stored, userID)
	m.commit(ctx, userID, stored, current, ReasonLoad)
	if indexOf(orgs, orgID) < 0 || sameID(current, &orgID) {
		return snapshotOf(orgs, current), false, nil
	}
	m.commit(ctx, userID, current, &orgID, ReasonSelect)
	return snapshotOf(orgs, &orgID), true, nil
}

// Refetch re-reads the organization list. A selection that disappeared is reset
// to the default choice.
func (m *Manager) Refetch(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	return m.resolve(ctx, userID, ReasonRefetch)
}

func (m *Manager) resolve(ctx context.Context, userID uuid.UUID, reason string) (Snapshot, error) {
	defer m.lock(userID)()
	orgs, stored, err := m.read(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	next := choose(orgs, stored, userID)
	m.commit(ctx, userID, stored, next, reason)
	return snapshotOf(orgs, next), nil
}

// choose keeps stored while it is listed, else falls back to the default.
func choose(orgs []models.OrganizationWithRole, stored *uuid.UUID, userID uuid.UUID) *uuid.UUID {
	if stored != nil && indexOf(orgs, *stored) >= 0 {
		id := *stored
		return &id
	}
	return defaultChoice(orgs, userID)
}

// OrganizationsChanged refetches the context of every affected user.
func (m *Manager) OrganizationsChanged(ctx context.Context, userIDs ...uuid.UUID) {
	for _, id := range userIDs {
		if _, err := m.Refetch(ctx, id); err != nil {
			m.logger.Warn("refetch org context", zap.String("user_id", id.String()), zap.Error(err))
		}
	}
}

// commit stores next as current and emits an event when it differs from prev.
func (m *Manager) commit(ctx context.Context, userID uuid.UUID, prev, next *uuid.UUID, reason string) {
	if sameID(prev, next) {
		return
	}

	var err error
	if next == nil {
		err = m.store.Clear(ctx, userID)
	} else {
		err = m.store.Set(ctx, userID, *next)
	}
	if err != nil {
		m.logger.Warn("persist org selection", zap.String("user_id", userID.String()), zap.Error(err))
	}

	ev := SelectionEvent{UserID: userID, From: prev, To: next, Reason: reason, At: m.now().UTC()}
	fields := []zap.Field{zap.String("user_id", userID.String()), zap.String("reason", reason)}
	if prev != nil {
		fields = append(fields, zap.String("from", prev.String()))
	}
	if next != nil {
		fields = append(fields, zap.String("to", next.String()))
	}
	m.logger.Info("org context changed", fields...)
	if m.publisher != nil {
		m.publisher.PublishUserEvent(ctx, userID, EventSelectionChanged, ev)
	}
}
