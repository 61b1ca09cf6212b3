// AngelaMos | 2026
// library_test.go

package content

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/paywall-blog/internal/access"
)

type recordingObserver struct {
	mu       sync.Mutex
	reloads  []error
	statuses []LookupStatus
}

func (o *recordingObserver) ContentReloaded(_ context.Context, _ int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reloads = append(o.reloads, err)
}

func (o *recordingObserver) ContentResolved(_ context.Context, _ access.Tier, status LookupStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func writeFile(t *testing.T, root, name, body string) {
	t.Helper()
	p := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
}

func newTestLibrary(root string, obs Observer) *Library {
	return NewLibrary(nil, Source{
		Root:       root,
		Extensions: []string{".html"},
		Transforms: []Transform{
			{Tier: access.NoAuth, Apply: Identity},
			{Tier: access.Confirmed, Apply: suffix(" [full]")},
		},
		Hash: HashRendering,
	}, nil, obs)
}

func TestLibraryUnloaded(t *testing.T) {
	t.Parallel()

	lib := newTestLibrary(t.TempDir(), nil)

	assert.ErrorIs(t, lib.Ping(context.Background()), ErrNotLoaded)
	assert.Equal(t, Missing, lib.ResolveIfChanged(context.Background(), "/a.html", access.Admin, "").Status)
	assert.Zero(t, lib.Len())
	_, ok := lib.Metadata("/a.html")
	assert.False(t, ok)
}

func TestLibraryReloadSwapsStore(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "post.html", "v1")

	obs := &recordingObserver{}
	lib := newTestLibrary(root, obs)
	ctx := context.Background()

	require.NoError(t, lib.Reload(ctx))
	require.NoError(t, lib.Ping(ctx))

	first := lib.ResolveIfChanged(ctx, "/post.html", access.NoAuth, "")
	require.Equal(t, Fresh, first.Status)
	assert.Equal(t, "v1", string(first.Body))

	old, _ := lib.Store()

	for range 2 {
		again := lib.ResolveIfChanged(ctx, "/post.html", access.NoAuth, first.Hash)
		assert.Equal(t, NotModified, again.Status)
	}

	writeFile(t, root, "post.html", "v2")
	require.NoError(t, lib.Reload(ctx))

	next := lib.ResolveIfChanged(ctx, "/post.html", access.NoAuth, first.Hash)
	require.Equal(t, Fresh, next.Status)
	assert.Equal(t, "v2", string(next.Body))
	assert.NotEqual(t, first.Hash, next.Hash)

	v, ok := old.Resolve("/post.html", access.NoAuth)
	require.True(t, ok)
	assert.Equal(t, "v1", string(v.Body), "readers of the old store keep the old snapshot")

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Len(t, obs.reloads, 2)
	assert.Equal(t, []LookupStatus{Fresh, NotModified, NotModified, Fresh}, obs.statuses)
}

func TestLibraryFailedReloadKeepsPrevious(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "post.html", "v1")

	lib := newTestLibrary(root, nil)
	require.NoError(t, lib.Reload(context.Background()))

	lib.source.Transforms = []Transform{
		{Tier: access.Confirmed, Apply: Identity},
		{Tier: access.NoAuth, Apply: Identity},
	}
	err := lib.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransformOrder)

	assert.True(t, lib.Contains("/post.html"))
}

func TestLibraryWatchReloadsOnChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "post.html", "v1")

	lib := newTestLibrary(root, nil)
	require.NoError(t, lib.Reload(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx) }()

	assert.Eventually(t, func() bool {
		writeFile(t, root, "fresh.html", "new")
		return lib.Contains("/fresh.html")
	}, 10*time.Second, 300*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
