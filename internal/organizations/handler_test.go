package organizations

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(f *fixture, userID uuid.UUID) *gin.Engine {
	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Next()
	})
	NewHandler(f.svc, zap.NewNop()).RegisterRoutes(api)
	api.GET("/organization/:id/scoped", RequireOrgAccess(f.svc, AccessMutate), func(c *gin.Context) {
		c.String(http.StatusOK, OrgID(c).String())
	})
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestAddMemberEndpoint(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	org := f.store.seedOrg(owner, nil)
	r := newTestRouter(f, owner)
	path := "/api/organization/" + org.ID.String() + "/add_member"

	w, env := do(t, r, http.MethodPost, path, `{"email":"new@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)

	w, env = do(t, r, http.MethodPost, path, `{"email":"new@example.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "conflict", env.Error.Kind)
	assert.Equal(t, "User already added", env.Error.Message)
	assert.Equal(t, "null", string(env.Data))
	assert.Equal(t, 1, f.store.memberAdds)

	w, _ = do(t, r, http.MethodPost, path, `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAndDeleteEndpoints(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	org := f.store.seedOrg(owner, nil)
	r := newTestRouter(f, owner)

	_, env := do(t, r, http.MethodGet, "/api/organization", "")
	var orgs []models.OrganizationWithRole
	require.NoError(t, json.Unmarshal(env.Data, &orgs))
	require.Len(t, orgs, 1)
	assert.Equal(t, "owner", orgs[0].Role)

	w, _ := do(t, r, http.MethodDelete, "/api/organization/"+org.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)

	_, env = do(t, r, http.MethodGet, "/api/organization", "")
	require.NoError(t, json.Unmarshal(env.Data, &orgs))
	assert.Empty(t, orgs)

	w, env = do(t, r, http.MethodGet, "/api/organization/"+org.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Error.Kind)
}

func TestCreateEndpointRejectsPaidTier(t *testing.T) {
	f := newFixture()
	r := newTestRouter(f, uuid.New())

	w, env := do(t, r, http.MethodPost, "/api/organization/create", `{"name":"Acme","tier":"enterprise"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", env.Error.Kind)
	assert.Equal(t, "Invalid tier", env.Error.Message)
}

func TestRequireOrgAccess(t *testing.T) {
	f := newFixture()
	owner, member := uuid.New(), uuid.New()
	org := f.store.seedOrg(owner, nil)
	f.store.members[org.ID][member] = models.OrgRoleMember

	w, _ := do(t, newTestRouter(f, owner), http.MethodGet, "/api/organization/"+org.ID.String()+"/scoped", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, org.ID.String(), w.Body.String())

	w, env := do(t, newTestRouter(f, member), http.MethodGet, "/api/organization/"+org.ID.String()+"/scoped", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", env.Error.Kind)

	w, _ = do(t, newTestRouter(f, owner), http.MethodGet, "/api/organization/not-a-uuid/scoped", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
