package authzhttp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewise/gatewise/internal/authz"
	"github.com/gatewise/gatewise/internal/guard"
	"github.com/gatewise/gatewise/internal/observability"
	"github.com/gatewise/gatewise/internal/providers/memory"
	_ "github.com/gatewise/gatewise/testing"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	registry := authz.NewRegistry()
	registry.Define("admin", "delete_user", PermRolesView)
	registry.Define("user", "view_profile")

	provider := memory.New()
	provider.Add("admin_token", authz.User{ID: "1", Username: "root", Roles: []string{"admin"}})
	provider.Add("user_token", authz.User{ID: "123", Username: "jane", Roles: []string{"user"}, Permissions: []string{"custom_permission"}})

	service := authz.NewService(registry, provider)
	metrics := observability.NewMetrics()
	g := guard.Guard{Service: service, Metrics: metrics}
	handler := NewHandler(nil, service, registry, g, metrics)

	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func postDecision(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/decisions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestDecideAllowsByRole(t *testing.T) {
	router := newTestRouter(t)

	res := postDecision(router, `{"token":"admin_token","role":"admin"}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"allowed":true`)
	assert.Contains(t, res.Body.String(), `"id":"1"`)
}

func TestDecideAllowsByPermission(t *testing.T) {
	router := newTestRouter(t)

	res := postDecision(router, `{"token":"user_token","permission":"view_profile"}`)
	assert.Equal(t, http.StatusOK, res.Code)

	res = postDecision(router, `{"token":"user_token","permission":"custom_permission"}`)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestDecideDenies(t *testing.T) {
	router := newTestRouter(t)

	res := postDecision(router, `{"token":"user_token","role":"admin"}`)
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.NotContains(t, res.Body.String(), "delete_user")
}

func TestDecideAuthFailure(t *testing.T) {
	router := newTestRouter(t)

	res := postDecision(router, `{"token":"garbage","role":"admin"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestDecideValidation(t *testing.T) {
	router := newTestRouter(t)

	for _, body := range []string{
		`{"role":"admin"}`,
		`{"token":"t"}`,
		`{"token":"t","role":"admin","permission":"x"}`,
		`{not json`,
	} {
		res := postDecision(router, body)
		assert.Equal(t, http.StatusBadRequest, res.Code, "body %s", body)
	}
}

func TestRolesIntrospectionGuarded(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/roles", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/roles", nil)
	req.Header.Set("Authorization", "Bearer user_token")
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRolesIntrospection(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/roles", nil)
	req.Header.Set("Authorization", "Bearer admin_token")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"admin"`)
	assert.Contains(t, res.Body.String(), `"view_profile"`)
}

func TestGetRole(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/roles/user", nil)
	req.Header.Set("Authorization", "Bearer admin_token")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"view_profile"`)

	req = httptest.NewRequest(http.MethodGet, "/roles/ghost", nil)
	req.Header.Set("Authorization", "Bearer admin_token")
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusNotFound, res.Code)
}
