// AngelaMos | 2026
// library.go

package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/carterperez-dev/paywall-blog/internal/access"
)

const reloadDebounce = 250 * time.Millisecond

var ErrNotLoaded = errors.New("content store not loaded")

// Observer receives content events for metrics.
type Observer interface {
	ContentReloaded(ctx context.Context, items int, err error)
	ContentResolved(ctx context.Context, tier access.Tier, status LookupStatus)
}

// Source describes how the library builds its store.
type Source struct {
	Root       string
	Extensions []string
	Transforms []Transform
	Hash       HashFunc
	Extract    MetadataFunc
}

// Library serves lookups from the current Store and replaces it
// wholesale on reload. Readers holding the previous Store keep a
// consistent view until they finish.
type Library struct {
	current  atomic.Pointer[Store]
	reloadMu sync.Mutex
	builder  *Builder
	source   Source
	logger   *slog.Logger
	observer Observer
}

func NewLibrary(
	builder *Builder,
	source Source,
	logger *slog.Logger,
	observer Observer,
) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	if builder == nil {
		builder = NewBuilder(logger)
	}
	return &Library{
		builder:  builder,
		source:   source,
		logger:   logger,
		observer: observer,
	}
}

// Reload rebuilds the store from the source. On failure the previous
// store stays in place.
func (l *Library) Reload(ctx context.Context) error {
	l.reloadMu.Lock()
	defer l.reloadMu.Unlock()

	items, err := l.builder.Build(
		ctx,
		l.source.Root,
		l.source.Extensions,
		l.source.Transforms,
		l.source.Hash,
		l.source.Extract,
	)
	if err == nil {
		var store *Store
		store, err = NewStore(items)
		if err == nil {
			l.current.Store(store)
		}
	}

	if l.observer != nil {
		l.observer.ContentReloaded(ctx, len(items), err)
	}
	if err != nil {
		return fmt.Errorf("reload content: %w", err)
	}
	return nil
}

// Swap installs s as the current store.
func (l *Library) Swap(s *Store) {
	l.current.Store(s)
}

func (l *Library) Store() (*Store, bool) {
	s := l.current.Load()
	return s, s != nil
}

func (l *Library) ResolveIfChanged(
	ctx context.Context,
	key Key,
	tier access.Tier,
	clientHash string,
) Lookup {
	lookup := Lookup{Status: Missing}
	if s, ok := l.Store(); ok {
		lookup = s.ResolveIfChanged(key, tier, clientHash)
	}

	if l.observer != nil {
		l.observer.ContentResolved(ctx, tier, lookup.Status)
	}
	return lookup
}

func (l *Library) Metadata(key Key) (PaywallMetadata, bool) {
	s, ok := l.Store()
	if !ok {
		return PaywallMetadata{}, false
	}
	return s.Metadata(key)
}

func (l *Library) MetadataByIdentifier(id string) (PaywallMetadata, bool) {
	s, ok := l.Store()
	if !ok {
		return PaywallMetadata{}, false
	}
	return s.MetadataByIdentifier(id)
}

func (l *Library) Contains(key Key) bool {
	s, ok := l.Store()
	return ok && s.Contains(key)
}

func (l *Library) Len() int {
	s, ok := l.Store()
	if !ok {
		return 0
	}
	return s.Len()
}

// Ping satisfies health.Checker.
func (l *Library) Ping(context.Context) error {
	if _, ok := l.Store(); !ok {
		return ErrNotLoaded
	}
	return nil
}

// Watch reloads the library whenever files under the source root change.
// It blocks until ctx is done.
func (l *Library) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck // closing on shutdown

	if err := addTree(watcher, l.source.Root); err != nil {
		return err
	}

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				//nolint:errcheck // non-directories fail to add and are ignored
				_ = addTree(watcher, event.Name)
			}
			timer.Reset(reloadDebounce)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("content watcher error", "error", watchErr)

		case <-timer.C:
			if reloadErr := l.Reload(ctx); reloadErr != nil {
				l.logger.Error("content reload failed", "error", reloadErr)
				continue
			}
			l.logger.Info("content reloaded", "items", l.Len())
		}
	}
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if addErr := watcher.Add(p); addErr != nil {
			return fmt.Errorf("watch %s: %w", p, addErr)
		}
		return nil
	})
}
