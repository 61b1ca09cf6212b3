// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/paywall-blog/internal/user"
)

type fakeLibrary struct {
	items   int
	loaded  bool
	reloads int
	err     error
}

func (f *fakeLibrary) Len() int { return f.items }

func (f *fakeLibrary) Ping(context.Context) error {
	if !f.loaded {
		return errors.New("not loaded")
	}
	return nil
}

func (f *fakeLibrary) Reload(context.Context) error {
	f.reloads++
	if f.err != nil {
		return f.err
	}
	f.loaded = true
	f.items = 3
	return nil
}

func passthrough(next http.Handler) http.Handler { return next }

func newRouter(cfg HandlerConfig) http.Handler {
	r := chi.NewRouter()
	NewHandler(cfg).RegisterRoutes(r, passthrough, passthrough)
	return r
}

func TestSystemStatsWithoutOptionalBackends(t *testing.T) {
	t.Parallel()

	router := newRouter(HandlerConfig{
		UserStats: func() user.Stats { return user.Stats{Users: 4, Confirmed: 2, Admins: 1, Entitlements: 5} },
		Content:   &fakeLibrary{items: 7, loaded: true},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data SystemStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Data.Users)
	assert.Equal(t, 4, body.Data.Users.Total)
	assert.Equal(t, 5, body.Data.Users.Entitlements)
	assert.Equal(t, ContentStatus{Loaded: true, Items: 7}, body.Data.Content)
	assert.False(t, body.Data.Database.Configured)
	assert.False(t, body.Data.Redis.Configured)
	assert.NotEmpty(t, body.Data.Runtime.GoVersion)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/stats/db", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReloadContent(t *testing.T) {
	t.Parallel()

	lib := &fakeLibrary{}
	router := newRouter(HandlerConfig{Content: lib})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/content/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":3`)

	lib.err = errors.New("bad price")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/content/reload", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "RELOAD_FAILED")
	assert.Equal(t, 2, lib.reloads)
}
