// AngelaMos | 2026
// tier.go

// Package access defines the ordered access tiers that decide which
// rendering of a content item a reader receives.
package access

import (
	"fmt"
	"strings"
)

// Tier is an access level. Tiers compare by ordinal only.
type Tier uint8

const (
	NoAuth Tier = iota
	Unconfirmed
	Confirmed
	PaidForItem
	Admin
)

var tierNames = [...]string{
	NoAuth:      "no_auth",
	Unconfirmed: "unconfirmed",
	Confirmed:   "confirmed",
	PaidForItem: "paid_for_item",
	Admin:       "admin",
}

// All lists every tier in ascending order.
func All() []Tier {
	return []Tier{NoAuth, Unconfirmed, Confirmed, PaidForItem, Admin}
}

// Compare returns -1, 0 or +1 as a is below, equal to or above b.
func Compare(a, b Tier) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether t grants everything required grants.
func (t Tier) AtLeast(required Tier) bool {
	return Compare(t, required) >= 0
}

func (t Tier) Valid() bool {
	return t <= Admin
}

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
	return tierNames[t]
}

func ParseTier(s string) (Tier, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range tierNames {
		if n == name {
			return Tier(i), nil
		}
	}
	return NoAuth, fmt.Errorf("unknown access tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid access tier %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
