package roles

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-manage/internal/admins"
	"github.com/odyssey-erp/odyssey-manage/internal/auditlog"
	"github.com/odyssey-erp/odyssey-manage/internal/container"
	"github.com/odyssey-erp/odyssey-manage/internal/entity"
	"github.com/odyssey-erp/odyssey-manage/internal/manage"
	"github.com/odyssey-erp/odyssey-manage/internal/menus"
)

const adminHeader = "X-Test-Admin"

func newRoleServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo := newMemoryRepo(
		&Role{ID: 1, Name: "viewer", Resources: []string{ResourceView}},
		&Role{ID: 2, Name: "editor", Resources: []string{ResourceEdit}},
		&Role{ID: 3, Name: "clerk", Resources: []string{"menus.view"}},
	)
	c := container.New()
	require.NoError(t, container.Bind[manage.Administrator](c, &admins.Administrator{}))
	require.NoError(t, container.Bind[manage.Role](c, &Role{}))
	require.NoError(t, container.Bind[manage.Menu](c, &menus.Menu{}))
	require.NoError(t, container.Bind[manage.Log](c, &auditlog.Entry{}))
	factory := entity.NewFactory(nil)
	entity.RegisterFor[*Role](factory, NewOperate(repo, nil))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := manage.NewProvider(c, factory, logger)
	handler := NewHandler(logger, NewService(repo, nil, logger), provider)

	users := map[string]*admins.Administrator{
		"viewer": {ID: 10, Account: "viewer", RoleID: 1, IsActive: true},
		"editor": {ID: 11, Account: "editor", RoleID: 2, IsActive: true},
		"clerk":  {ID: 12, Account: "clerk", RoleID: 3, IsActive: true},
	}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if admin, ok := users[req.Header.Get(adminHeader)]; ok {
				req = req.WithContext(manage.WithCurrent(req.Context(), admin))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/roles", handler.MountRoutes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, as, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if as != "" {
		req.Header.Set(adminHeader, as)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestHandlerRequiresSignedInUser(t *testing.T) {
	srv := newRoleServer(t)
	code, _ := call(t, srv, "", http.MethodGet, "/roles", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = call(t, srv, "", http.MethodPost, "/roles", `{"name":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHandlerRejectsRoleWithoutResource(t *testing.T) {
	srv := newRoleServer(t)
	code, _ := call(t, srv, "clerk", http.MethodGet, "/roles", "")
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = call(t, srv, "clerk", http.MethodGet, "/roles/1", "")
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = call(t, srv, "viewer", http.MethodPost, "/roles", `{"name":"auditors"}`)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestHandlerListAndGet(t *testing.T) {
	srv := newRoleServer(t)

	code, raw := call(t, srv, "viewer", http.MethodGet, "/roles", "")
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Roles []Role `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list.Roles, 3)

	code, raw = call(t, srv, "viewer", http.MethodGet, "/roles/2", "")
	require.Equal(t, http.StatusOK, code)
	var role Role
	require.NoError(t, json.Unmarshal(raw, &role))
	assert.Equal(t, "editor", role.Name)

	code, _ = call(t, srv, "viewer", http.MethodGet, "/roles/99", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = call(t, srv, "viewer", http.MethodGet, "/roles/0", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = call(t, srv, "viewer", http.MethodGet, "/roles/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, srv, "editor", http.MethodGet, "/roles/1", "")
	assert.Equal(t, http.StatusOK, code, "edit grants read access")
}

func TestHandlerCreate(t *testing.T) {
	srv := newRoleServer(t)

	code, raw := call(t, srv, "editor", http.MethodPost, "/roles", `{"name":"auditors","resources":["logs.view"]}`)
	require.Equal(t, http.StatusCreated, code, string(raw))
	var role Role
	require.NoError(t, json.Unmarshal(raw, &role))
	assert.Equal(t, "auditors", role.Name)
	assert.Equal(t, []string{"logs.view"}, role.Resources)

	code, _ = call(t, srv, "editor", http.MethodPost, "/roles", `{"name":"auditors"}`)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, srv, "editor", http.MethodPost, "/roles", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, srv, "editor", http.MethodPost, "/roles", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, code)
}
