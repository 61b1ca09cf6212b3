// AngelaMos | 2026
// builder_test.go

package content

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/paywall-blog/internal/access"
)

type failingFS struct {
	fstest.MapFS
	fail string
}

func (f failingFS) Open(name string) (fs.File, error) {
	if name == f.fail {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return f.MapFS.Open(name)
}

func (f failingFS) ReadFile(name string) ([]byte, error) {
	if name == f.fail {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrPermission}
	}
	return f.MapFS.ReadFile(name)
}

func upper(doc Document) ([]byte, error) {
	return bytes.ToUpper(doc.Body), nil
}

func suffix(s string) TransformFunc {
	return func(doc Document) ([]byte, error) {
		return append(doc.Body, s...), nil
	}
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestBuildWalksTreeAndFiltersExtensions(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"index.html":          {Data: []byte("home")},
		"blog/post.html":      {Data: []byte("post")},
		"blog/deep/more.HTML": {Data: []byte("more")},
		"blog/notes.txt":      {Data: []byte("ignored")},
		"style.css":           {Data: []byte("ignored")},
	}

	items, err := NewBuilder(nil).WithFS(fsys).Build(
		context.Background(),
		"unused",
		[]string{".html"},
		[]Transform{
			{Tier: access.NoAuth, Apply: Identity},
			{Tier: access.Confirmed, Apply: upper},
		},
		nil,
		nil,
	)
	require.NoError(t, err)
	require.Len(t, items, 3)

	keys := make([]Key, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}
	assert.Equal(t, []Key{"/blog/deep/more.HTML", "/blog/post.html", "/index.html"}, keys)

	post := items[1]
	require.Len(t, post.Variants, 2)
	assert.Equal(t, "post", string(post.Variants[0].Body))
	assert.Equal(t, "POST", string(post.Variants[1].Body))
	assert.Equal(t, HashRendering([]byte("POST")), post.Variants[1].Hash)
	assert.Nil(t, post.Metadata)
}

func TestBuildAppliesEveryTransformToOriginal(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"a.html": {Data: []byte("body")}}

	clobber := func(doc Document) ([]byte, error) {
		copy(doc.Body, "XXXX")
		return doc.Body, nil
	}

	items, err := NewBuilder(nil).WithFS(fsys).Build(
		context.Background(),
		".",
		[]string{"html"},
		[]Transform{
			{Tier: access.NoAuth, Apply: clobber},
			{Tier: access.Unconfirmed, Apply: suffix("-1")},
			{Tier: access.Confirmed, Apply: suffix("-2")},
		},
		nil,
		nil,
	)
	require.NoError(t, err)
	require.Len(t, items, 1)

	v := items[0].Variants
	assert.Equal(t, "XXXX", string(v[0].Body))
	assert.Equal(t, "body-1", string(v[1].Body))
	assert.Equal(t, "body-2", string(v[2].Body))
}

func TestBuildRejectsTransformOrder(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"a.html": {Data: []byte("x")}}
	b := NewBuilder(nil).WithFS(fsys)

	tests := map[string][]Transform{
		"descending": {
			{Tier: access.Confirmed, Apply: Identity},
			{Tier: access.Unconfirmed, Apply: Identity},
		},
		"repeated": {
			{Tier: access.NoAuth, Apply: Identity},
			{Tier: access.NoAuth, Apply: Identity},
		},
	}

	for name, transforms := range tests {
		_, err := b.Build(context.Background(), ".", []string{".html"}, transforms, nil, nil)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, ErrTransformOrder, name)
		assert.True(t, IsTransformOrderError(err), name)
	}

	_, err := b.Build(context.Background(), ".", []string{".html"}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoVariants)
}

func TestBuildSkipsUnreadableFiles(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	fsys := failingFS{
		MapFS: fstest.MapFS{
			"good.html":   {Data: []byte("fine")},
			"broken.html": {Data: []byte("never read")},
		},
		fail: "broken.html",
	}

	items, err := NewBuilder(testLogger(&logs)).WithFS(fsys).Build(
		context.Background(),
		".",
		[]string{".html"},
		[]Transform{{Tier: access.NoAuth, Apply: Identity}},
		nil,
		nil,
	)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, Key("/good.html"), items[0].Key)
	assert.Contains(t, logs.String(), "skipping content file")
	assert.Contains(t, logs.String(), "broken.html")
}

func TestBuildSkipsFilesWhoseTransformFails(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	fsys := fstest.MapFS{
		"ok.html":  {Data: []byte("ok")},
		"bad.html": {Data: []byte("bad")},
	}

	failOnBad := func(doc Document) ([]byte, error) {
		if strings.Contains(string(doc.Body), "bad") {
			return nil, errors.New("boom")
		}
		return doc.Body, nil
	}

	items, err := NewBuilder(testLogger(&logs)).WithFS(fsys).Build(
		context.Background(),
		".",
		[]string{".html"},
		[]Transform{{Tier: access.NoAuth, Apply: failOnBad}},
		nil,
		nil,
	)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, Key("/ok.html"), items[0].Key)
	assert.Contains(t, logs.String(), "boom")
}

func TestBuildExtractsMetadataOnceFromOriginal(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"paid.html": {Data: []byte("paid")}}
	calls := 0

	extract := func(doc Document) (*PaywallMetadata, error) {
		calls++
		assert.Equal(t, "paid", string(doc.Body))
		return &PaywallMetadata{Identifier: "paid", Link: string(doc.Key)}, nil
	}

	items, err := NewBuilder(nil).WithFS(fsys).Build(
		context.Background(),
		".",
		[]string{".html"},
		[]Transform{
			{Tier: access.NoAuth, Apply: upper},
			{Tier: access.PaidForItem, Apply: Identity},
		},
		func(b []byte) string { return "h-" + string(b) },
		extract,
	)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, calls)
	require.NotNil(t, items[0].Metadata)
	assert.Equal(t, "/paid.html", items[0].Metadata.Link)
	assert.Equal(t, "h-PAID", items[0].Variants[0].Hash)
}

func TestBuildHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(nil).WithFS(fstest.MapFS{"a.html": {Data: []byte("a")}}).Build(
		ctx,
		".",
		[]string{".html"},
		[]Transform{{Tier: access.NoAuth, Apply: Identity}},
		nil,
		nil,
	)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildSkipsPaywalledFileWithBadAttributes(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	page := func(attrs string) *fstest.MapFile {
		return &fstest.MapFile{Data: []byte(
			`<html><body><main><p>intro</p><div class="PAYWALLED" ` + attrs + `></div><p>secret</p></main></body></html>`,
		)}
	}
	fsys := fstest.MapFS{
		"good.html":     page(`data-paywall-identifier="good" data-paywall-title="Good" data-paywall-price="499" data-paywall-currency="USD"`),
		"no-price.html": page(`data-paywall-identifier="np" data-paywall-title="No price" data-paywall-currency="USD"`),
		"bad-cur.html":  page(`data-paywall-identifier="bc" data-paywall-title="Bad" data-paywall-price="499" data-paywall-currency="XYZ"`),
		"no-ident.html": page(`data-paywall-title="Anon" data-paywall-price="499" data-paywall-currency="EUR"`),
	}

	items, err := NewBuilder(testLogger(&logs)).WithFS(fsys).Build(
		context.Background(),
		".",
		[]string{".html"},
		PaywallTransforms(DefaultWallOptions()),
		nil,
		ExtractMetadata,
	)
	require.NoError(t, err)
	require.Len(t, items, 1, "paywalled pages with broken attributes are withheld, never served unwalled")
	assert.Equal(t, Key("/good.html"), items[0].Key)

	for _, name := range []string{"no-price.html", "bad-cur.html", "no-ident.html"} {
		assert.Contains(t, logs.String(), name)
	}

	store, err := NewStore(items)
	require.NoError(t, err)
	_, ok := store.Resolve("/no-price.html", access.NoAuth)
	assert.False(t, ok)
}
