package manage_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-manage/internal/app"
	"github.com/odyssey-erp/odyssey-manage/internal/manage"
	"github.com/odyssey-erp/odyssey-manage/internal/shared"
)

type apiClient struct {
	t      *testing.T
	base   string
	client *http.Client
	token  string
}

func newAPI(t *testing.T, f *fixture) *apiClient {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := shared.NewSessionManager(rdb, "sid", time.Hour, false)
	csrf := shared.NewCSRFManager("test-secret")

	r := chi.NewRouter()
	r.Use(app.SessionMiddleware(sessions, logger))
	r.Use(app.CSRFMiddleware(csrf, logger))
	manage.NewHandler(logger, f.provider, sessions, csrf).MountRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &apiClient{t: t, base: srv.URL, client: &http.Client{Jar: jar}}
}

func (c *apiClient) do(method, path, body string) (int, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(shared.CSRFHeader, c.token)
	}
	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	var out map[string]any
	if len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (c *apiClient) fetchToken() {
	c.t.Helper()
	code, body := c.do(http.MethodGet, "/auth/csrf", "")
	require.Equal(c.t, http.StatusOK, code)
	token, _ := body["csrf_token"].(string)
	require.NotEmpty(c.t, token)
	c.token = token
}

func menuNames(t *testing.T, body map[string]any) []string {
	t.Helper()
	list, ok := body["menus"].([]any)
	require.True(t, ok, "menus must be a list: %v", body)
	names := make([]string, 0, len(list))
	for _, item := range list {
		names = append(names, item.(map[string]any)["name"].(string))
	}
	return names
}

func TestHandlerLoginAndMenus(t *testing.T) {
	f := newFixture(t)
	f.admin(t, "root", roleAC, false)
	api := newAPI(t, f)

	code, _ := api.do(http.MethodGet, "/me", "")
	require.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.do(http.MethodPost, "/auth/login", `{"account":"root","password":"password1"}`)
	require.Equal(t, http.StatusForbidden, code, "login requires a csrf token")

	api.fetchToken()
	code, _ = api.do(http.MethodPost, "/auth/login", `{"account":"root","password":"nope-nope"}`)
	require.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.do(http.MethodPost, "/auth/login", `{"account":"root"}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, body := api.do(http.MethodPost, "/auth/login", `{"account":"root","password":"password1"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "root", body["account"])
	require.Equal(t, "ac", body["role"])

	code, body = api.do(http.MethodGet, "/me", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "root", body["account"])

	code, body = api.do(http.MethodGet, "/menus/0/mine", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []string{"A", "C"}, menuNames(t, body))

	code, body = api.do(http.MethodGet, "/menus/3/mine", "")
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, menuNames(t, body))

	code, _ = api.do(http.MethodGet, "/menus/abc/mine", "")
	require.Equal(t, http.StatusBadRequest, code)

	code, body = api.do(http.MethodGet, "/menus/3", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "C", body["name"])
	require.Len(t, body["children"], 2)

	code, _ = api.do(http.MethodGet, "/menus/404", "")
	require.Equal(t, http.StatusNotFound, code)

	code, body = api.do(http.MethodGet, "/menus/root", "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["children"], 3)

	code, _ = api.do(http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusNoContent, code)

	code, _ = api.do(http.MethodGet, "/me", "")
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestHandlerDisabledAccountCannotLogin(t *testing.T) {
	f := newFixture(t)
	f.admin(t, "retired", roleAC, true)
	api := newAPI(t, f)
	api.fetchToken()

	code, body := api.do(http.MethodPost, "/auth/login", `{"account":"retired","password":"password1"}`)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "Unauthorized", body["title"])
}

func TestHandlerFullTreeRequiresMenusView(t *testing.T) {
	f := newFixture(t)
	f.admin(t, "nested", roleNested, false)
	api := newAPI(t, f)
	api.fetchToken()

	code, _ := api.do(http.MethodPost, "/auth/login", `{"account":"nested","password":"password1"}`)
	require.Equal(t, http.StatusOK, code)

	code, _ = api.do(http.MethodGet, "/menus/root", "")
	require.Equal(t, http.StatusForbidden, code)
	code, _ = api.do(http.MethodGet, "/menus/3", "")
	require.Equal(t, http.StatusForbidden, code)

	code, body := api.do(http.MethodGet, "/menus/3/mine", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []string{"C2"}, menuNames(t, body))
}
