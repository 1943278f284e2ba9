package usersettings

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/middleware"
)

var settingsCols = []string{"user", "tier", "request_limit", "stripe_customer_id", "subscription_id", "created_at"}

func setup(t *testing.T) (*gin.Engine, pgxmock.PgxPoolIface, uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	userID := uuid.New()
	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Next()
	})
	NewHandler(NewRepository(mock), zap.NewNop()).RegisterRoutes(api)
	return r, mock, userID
}

func TestGetCreatesSettingsLazily(t *testing.T) {
	r, mock, userID := setup(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_settings ("user") VALUES ($1) ON CONFLICT ("user") DO NOTHING`)).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM user_settings WHERE "user" = $1`)).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(settingsCols).
			AddRow(userID.String(), "free", int64(100000), nil, nil, time.Now()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user_settings", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Tier         string `json:"tier"`
			RequestLimit int64  `json:"request_limit"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "free", body.Data.Tier)
	assert.EqualValues(t, 100000, body.Data.RequestLimit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRequestLimit(t *testing.T) {
	r, mock, userID := setup(t)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT ("user") DO UPDATE SET request_limit = EXCLUDED.request_limit`)).
		WithArgs(userID, int64(5000)).
		WillReturnRows(pgxmock.NewRows(settingsCols).
			AddRow(userID.String(), "free", int64(5000), nil, nil, time.Now()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/user_settings", strings.NewReader(`{"request_limit":5000}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateValidation(t *testing.T) {
	r, _, _ := setup(t)
	for _, body := range []string{`{}`, `{"request_limit":-1}`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/user_settings", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestDatabaseErrorPassesThrough(t *testing.T) {
	r, mock, userID := setup(t)
	mock.ExpectExec(`INSERT INTO user_settings`).
		WithArgs(userID).
		WillReturnError(errors.New("relation \"user_settings\" does not exist"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user_settings", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `relation \"user_settings\" does not exist`)
}
