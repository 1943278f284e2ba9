package stats

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu     sync.Mutex
	fail   string
	called []string
}

func (f *fakeStore) Series(ctx context.Context, q Query) ([]Point, error) {
	f.mu.Lock()
	f.called = append(f.called, q.Name)
	f.mu.Unlock()
	if q.Name == f.fail {
		return nil, errors.New(`relation "request" does not exist`)
	}
	return []Point{{Time: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Value: 7}}, nil
}

func TestCollect(t *testing.T) {
	store := &fakeStore{}
	d, err := NewService(store, zap.NewNop()).Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, store.called, 6)
	for _, series := range [][]Point{d.WeeklyActiveOrgs, d.MonthlyActiveOrgs, d.WeeklyNewUsers, d.OrgGrowth, d.ChurnedOrgs, d.Retention} {
		require.Len(t, series, 1)
		assert.Equal(t, 7.0, series[0].Value)
	}
}

func TestCollectFailsWithoutPartialData(t *testing.T) {
	store := &fakeStore{fail: "churned_orgs"}
	d, err := NewService(store, zap.NewNop()).Collect(context.Background())
	assert.Nil(t, d)
	assert.EqualError(t, err, `relation "request" does not exist`)
}

func TestHandlerReturns500OnFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/stats", NewHandler(NewService(&fakeStore{fail: "org_growth"}, zap.NewNop())).Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.NotContains(t, w.Body.String(), "weekly_active_orgs")
}

func TestRepositorySeriesReshapesRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	week := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	value := 42.5
	mock.ExpectQuery(`FROM cohort c`).
		WillReturnRows(pgxmock.NewRows([]string{"time", "value"}).
			AddRow(week, &value).
			AddRow(week.AddDate(0, 0, 7), (*float64)(nil)))

	points, err := NewRepository(mock).Series(context.Background(), retention)
	require.NoError(t, err)
	assert.Equal(t, []Point{{Time: week, Value: 42.5}, {Time: week.AddDate(0, 0, 7), Value: 0}}, points)
	require.NoError(t, mock.ExpectationsWereMet())
}
