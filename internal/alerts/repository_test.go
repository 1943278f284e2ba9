package alerts

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helicone-dashboard/backend/internal/models"
)

func TestResolveAppendsHistorySnapshot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	triggeredAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	now := triggeredAt.Add(20 * time.Minute)
	a := models.Alert{
		ID: uuid.New(), OrgID: uuid.New(), Name: "cost spike", Metric: models.AlertMetricCost,
		Threshold: 50, Status: models.AlertStatusTriggered, TriggeredAt: &triggeredAt,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE alert SET status = 'resolved', triggered_at = NULL WHERE id = $1`)).
		WithArgs(a.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO alert_history`)).
		WithArgs(a.ID, a.OrgID, a.Name, a.Metric, a.Threshold, 12.5, triggeredAt, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, NewRepository(mock).Resolve(context.Background(), a, 12.5, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTriggerRollsBackOnHistoryFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	a := models.Alert{ID: uuid.New(), OrgID: uuid.New(), Name: "errors", Metric: models.AlertMetricStatus, Threshold: 5}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE alert SET status = 'triggered'`)).
		WithArgs(a.ID, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO alert_history`)).
		WithArgs(a.ID, a.OrgID, a.Name, a.Metric, a.Threshold, 9.0, now).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = NewRepository(mock).Trigger(context.Background(), a, 9.0, now)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
