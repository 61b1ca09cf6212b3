// AngelaMos | 2026
// builder.go

package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/paywall-blog/internal/access"
	"github.com/carterperez-dev/paywall-blog/internal/core"
)

type TransformFunc func(doc Document) ([]byte, error)

type Transform struct {
	Tier  access.Tier
	Apply TransformFunc
}

type HashFunc func(body []byte) string

// MetadataFunc returns nil when the document carries no paywall.
type MetadataFunc func(doc Document) (*PaywallMetadata, error)

// Builder turns a directory of source documents into content items.
type Builder struct {
	logger *slog.Logger
	openFS func(root string) fs.FS
}

func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		logger: logger,
		openFS: os.DirFS,
	}
}

// WithFS makes the builder read from fsys regardless of the root passed
// to Build.
func (b *Builder) WithFS(fsys fs.FS) *Builder {
	clone := *b
	clone.openFS = func(string) fs.FS { return fsys }
	return &clone
}

func (b *Builder) Build(
	ctx context.Context,
	root string,
	extensions []string,
	transforms []Transform,
	hash HashFunc,
	extract MetadataFunc,
) ([]Item, error) {
	ctx, span := core.StartSpan(ctx, "content.build",
		attribute.String("content.root", root),
	)
	defer span.End()

	if err := validateTransforms(transforms); err != nil {
		core.SetSpanError(span, err)
		return nil, err
	}

	if hash == nil {
		hash = HashRendering
	}

	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}

	fsys := b.openFS(root)
	var items []Item
	skipped := 0

	walkErr := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			b.logger.Warn("skipping unreadable content path",
				"path", p,
				"error", err,
			)
			skipped++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if _, ok := exts[strings.ToLower(path.Ext(p))]; !ok {
			return nil
		}

		item, buildErr := b.buildItem(fsys, p, transforms, hash, extract)
		if buildErr != nil {
			b.logger.Warn("skipping content file",
				"path", p,
				"error", buildErr,
			)
			skipped++
			return nil
		}

		items = append(items, item)
		return nil
	})
	if walkErr != nil {
		core.SetSpanError(span, walkErr)
		return nil, fmt.Errorf("walk content root %s: %w", root, walkErr)
	}

	slices.SortFunc(items, func(a, c Item) int {
		return strings.Compare(string(a.Key), string(c.Key))
	})

	span.SetAttributes(
		attribute.Int("content.items", len(items)),
		attribute.Int("content.skipped", skipped),
	)
	b.logger.Info("content built",
		"root", root,
		"items", len(items),
		"skipped", skipped,
	)

	return items, nil
}

func (b *Builder) buildItem(
	fsys fs.FS,
	p string,
	transforms []Transform,
	hash HashFunc,
	extract MetadataFunc,
) (Item, error) {
	body, err := fs.ReadFile(fsys, p)
	if err != nil {
		return Item{}, fmt.Errorf("read: %w", err)
	}

	key, err := NormalizeKey(p)
	if err != nil {
		return Item{}, err
	}

	doc := Document{Key: key, Path: p, Body: body}

	var meta *PaywallMetadata
	if extract != nil {
		meta, err = extract(doc)
		if err != nil {
			return Item{}, fmt.Errorf("extract metadata: %w", err)
		}
	}

	variants := make(VariantSet, 0, len(transforms))
	for _, t := range transforms {
		// Every transform starts from a private copy of the source.
		rendered, applyErr := t.Apply(Document{
			Key:  key,
			Path: p,
			Body: slices.Clone(body),
		})
		if applyErr != nil {
			return Item{}, fmt.Errorf("transform for %s: %w", t.Tier, applyErr)
		}

		variants = append(variants, Variant{
			Threshold: t.Tier,
			Body:      rendered,
			Hash:      hash(rendered),
		})
	}

	return Item{Key: key, Variants: variants, Metadata: meta}, nil
}

func validateTransforms(transforms []Transform) error {
	if len(transforms) == 0 {
		return fmt.Errorf("build content: %w", ErrNoVariants)
	}

	for i, t := range transforms {
		if t.Apply == nil {
			return fmt.Errorf("build content: transform for %s is nil: %w", t.Tier, core.ErrInvalidInput)
		}
		if i > 0 && t.Tier <= transforms[i-1].Tier {
			return fmt.Errorf(
				"build content: %s follows %s: %w",
				t.Tier,
				transforms[i-1].Tier,
				ErrTransformOrder,
			)
		}
	}

	return nil
}

// Identity passes the source through unchanged.
func Identity(doc Document) ([]byte, error) {
	return doc.Body, nil
}

// IsTransformOrderError reports whether err came from misordered
// transforms or variants.
func IsTransformOrderError(err error) bool {
	return errors.Is(err, ErrTransformOrder) || errors.Is(err, ErrThresholdOrder)
}
