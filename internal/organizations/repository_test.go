package organizations

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helicone-dashboard/backend/pkg/database"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestListForUserFiltersSoftDeleted(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.soft_delete = false AND (om.member = $1 OR o.owner = $1)")).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	orgs, err := repo.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.NotNil(t, orgs)
	assert.Empty(t, orgs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRole(t *testing.T) {
	orgID, userID := uuid.New(), uuid.New()

	t.Run("member", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT CASE WHEN o.owner = \$2`).
			WithArgs(orgID, userID).
			WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("admin"))

		role, err := repo.Role(context.Background(), orgID, userID)
		require.NoError(t, err)
		assert.Equal(t, "admin", role)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing organization", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT CASE WHEN o.owner = \$2`).
			WithArgs(orgID, userID).
			WillReturnError(pgx.ErrNoRows)

		role, err := repo.Role(context.Background(), orgID, userID)
		require.NoError(t, err)
		assert.Empty(t, role)
	})
}

func TestSoftDelete(t *testing.T) {
	repo, mock := newMockRepo(t)
	orgID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE organization SET soft_delete = true WHERE id = $1")).
		WithArgs(orgID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.SoftDelete(context.Background(), orgID)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberSurfacesUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	orgID, userID := uuid.New(), uuid.New()

	mock.ExpectExec("INSERT INTO organization_member").
		WithArgs(orgID, userID, "member").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.AddMember(context.Background(), orgID, userID, "member")
	assert.True(t, database.IsUniqueViolation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsurePersonal(t *testing.T) {
	userID := uuid.New()

	t.Run("creates with owner membership", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		newID := uuid.New()
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO organization").
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(newID.String()))
		mock.ExpectExec("INSERT INTO organization_member").
			WithArgs(newID, userID, "owner").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		id, created, err := repo.EnsurePersonal(context.Background(), userID)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, newID, id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns existing", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		existing := uuid.New()
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO organization").
			WithArgs(userID).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT id FROM organization WHERE owner").
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(existing.String()))
		mock.ExpectCommit()

		id, created, err := repo.EnsurePersonal(context.Background(), userID)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existing, id)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
