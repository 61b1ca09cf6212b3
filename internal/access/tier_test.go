// AngelaMos | 2026
// tier_test.go

package access

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareIsTotalOrder(t *testing.T) {
	t.Parallel()

	tiers := All()
	for i, a := range tiers {
		for j, b := range tiers {
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			assert.Equal(t, want, Compare(a, b), "%s vs %s", a, b)
		}
	}
}

func TestAtLeast(t *testing.T) {
	t.Parallel()

	assert.True(t, Admin.AtLeast(PaidForItem))
	assert.True(t, Admin.AtLeast(NoAuth))
	assert.True(t, Confirmed.AtLeast(Confirmed))
	assert.False(t, Unconfirmed.AtLeast(Confirmed))
	assert.False(t, NoAuth.AtLeast(Unconfirmed))

	for _, tier := range All() {
		assert.True(t, Admin.AtLeast(tier), "admin must dominate %s", tier)
	}
}

func TestParseTier(t *testing.T) {
	t.Parallel()

	for _, tier := range All() {
		parsed, err := ParseTier(tier.String())
		require.NoError(t, err)
		assert.Equal(t, tier, parsed)
	}

	parsed, err := ParseTier("  Paid_For_Item ")
	require.NoError(t, err)
	assert.Equal(t, PaidForItem, parsed)

	_, err = ParseTier("superuser")
	assert.Error(t, err)
}

func TestTierJSON(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(map[string]Tier{"tier": Confirmed})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":"confirmed"}`, string(raw))

	var decoded struct {
		Tier Tier `json:"tier"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"tier":"admin"}`), &decoded))
	assert.Equal(t, Admin, decoded.Tier)

	assert.Error(t, json.Unmarshal([]byte(`{"tier":"root"}`), &decoded))
}

func TestInvalidTierString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tier(9)", Tier(9).String())
	assert.False(t, Tier(9).Valid())
}
