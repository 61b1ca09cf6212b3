// AngelaMos | 2026
// store.go

package content

import (
	"fmt"
	"slices"

	"github.com/carterperez-dev/paywall-blog/internal/access"
)

type LookupStatus int

const (
	Missing LookupStatus = iota
	Fresh
	NotModified
)

func (s LookupStatus) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case NotModified:
		return "not_modified"
	default:
		return "missing"
	}
}

// Lookup is the result of a conditional resolve. Body is only set when
// Status is Fresh.
type Lookup struct {
	Status    LookupStatus
	Body      []byte
	Hash      string
	Threshold access.Tier
}

type entry struct {
	variants VariantSet
	metadata *PaywallMetadata
}

// Store holds every content item's variants. It is immutable after
// NewStore returns; reloads build a new Store.
type Store struct {
	items map[Key]entry
}

func NewStore(items []Item) (*Store, error) {
	s := &Store{
		items: make(map[Key]entry, len(items)),
	}

	for _, item := range items {
		if err := item.Variants.Validate(); err != nil {
			return nil, fmt.Errorf("build store: %s: %w", item.Key, err)
		}

		if _, exists := s.items[item.Key]; exists {
			return nil, fmt.Errorf("build store: %s: %w", item.Key, ErrDuplicateKey)
		}

		var meta *PaywallMetadata
		if item.Metadata != nil {
			m := *item.Metadata
			meta = &m
		}

		s.items[item.Key] = entry{
			variants: slices.Clone(item.Variants),
			metadata: meta,
		}
	}

	return s, nil
}

func (s *Store) Resolve(key Key, tier access.Tier) (Variant, bool) {
	e, ok := s.items[key]
	if !ok {
		return Variant{}, false
	}
	return e.variants.Select(tier), true
}

func (s *Store) ResolveIfChanged(
	key Key,
	tier access.Tier,
	clientHash string,
) Lookup {
	v, ok := s.Resolve(key, tier)
	if !ok {
		return Lookup{Status: Missing}
	}

	if clientHash != "" && clientHash == v.Hash {
		return Lookup{
			Status:    NotModified,
			Hash:      v.Hash,
			Threshold: v.Threshold,
		}
	}

	return Lookup{
		Status:    Fresh,
		Body:      v.Body,
		Hash:      v.Hash,
		Threshold: v.Threshold,
	}
}

func (s *Store) Metadata(key Key) (PaywallMetadata, bool) {
	e, ok := s.items[key]
	if !ok || e.metadata == nil {
		return PaywallMetadata{}, false
	}
	return *e.metadata, true
}

// Contains reports whether key names an item.
func (s *Store) Contains(key Key) bool {
	_, ok := s.items[key]
	return ok
}

func (s *Store) Len() int {
	return len(s.items)
}

func (s *Store) Keys() []Key {
	keys := make([]Key, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// MetadataByIdentifier finds the paywalled item whose identifier is id.
func (s *Store) MetadataByIdentifier(id string) (PaywallMetadata, bool) {
	for _, e := range s.items {
		if e.metadata != nil && e.metadata.Identifier == id {
			return *e.metadata, true
		}
	}
	return PaywallMetadata{}, false
}
