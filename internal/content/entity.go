// AngelaMos | 2026
// entity.go

package content

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/carterperez-dev/paywall-blog/internal/access"
	"github.com/carterperez-dev/paywall-blog/internal/core"
)

var (
	ErrThresholdOrder = fmt.Errorf("variant thresholds must be strictly increasing: %w", core.ErrInvalidInput)
	ErrTransformOrder = fmt.Errorf("transformations must be in strictly increasing tier order: %w", core.ErrInvalidInput)
	ErrNoVariants     = fmt.Errorf("variant set is empty: %w", core.ErrInvalidInput)
	ErrDuplicateKey   = fmt.Errorf("content key declared twice: %w", core.ErrDuplicateKey)
	ErrInvalidKey     = errors.New("invalid content key")
)

// Key identifies one content item: a slash separated path rooted at "/".
type Key string

// NormalizeKey cleans a request or file path into a Key. Paths that
// escape the root are rejected.
func NormalizeKey(p string) (Key, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return "", ErrInvalidKey
	}

	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %q escapes content root", ErrInvalidKey, p)
		}
	}

	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return "/", nil
	}
	return Key(cleaned), nil
}

func (k Key) String() string {
	return string(k)
}

// Variant is one precomputed rendering and the threshold from which it
// applies.
type Variant struct {
	Threshold access.Tier
	Body      []byte
	Hash      string
}

// VariantSet is ordered by strictly increasing Threshold.
type VariantSet []Variant

func (vs VariantSet) Validate() error {
	if len(vs) == 0 {
		return ErrNoVariants
	}
	for i := 1; i < len(vs); i++ {
		if vs[i].Threshold <= vs[i-1].Threshold {
			return fmt.Errorf(
				"%w: %s follows %s",
				ErrThresholdOrder,
				vs[i].Threshold,
				vs[i-1].Threshold,
			)
		}
	}
	return nil
}

// Select picks the variant with the highest threshold not above tier. The
// first variant is the floor for tiers below every threshold.
func (vs VariantSet) Select(tier access.Tier) Variant {
	count := 0
	for _, v := range vs {
		if !tier.AtLeast(v.Threshold) {
			break
		}
		count++
	}

	idx := count - 1
	if idx < 0 {
		idx = 0
	}
	return vs[idx]
}

type PaywallMetadata struct {
	Identifier string `json:"identifier"`
	Link       string `json:"link"`
	Title      string `json:"title"`
	Price      Price  `json:"price"`
}

// Item is a content key with its variants and optional paywall metadata.
type Item struct {
	Key      Key
	Variants VariantSet
	Metadata *PaywallMetadata
}

// Document is a source file as read by the Builder.
type Document struct {
	Key  Key
	Path string
	Body []byte
}
