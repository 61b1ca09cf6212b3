// AngelaMos | 2026
// codec.go

package auth

import (
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// HashGrant is the token form of an article identifier. It is one-way so
// a decoded session token does not reveal which articles were bought.
func HashGrant(articleID string) string {
	return strconv.FormatUint(xxhash.Sum64String(articleID), 36)
}

// EncodeGrants hashes every article identifier. Duplicates collapse.
func EncodeGrants(articleIDs []string) []string {
	hashes := make([]string, 0, len(articleIDs))
	for _, id := range articleIDs {
		h := HashGrant(id)
		if !slices.Contains(hashes, h) {
			hashes = append(hashes, h)
		}
	}
	return hashes
}

func MatchesGrant(articleID string, grants []string) bool {
	return slices.Contains(grants, HashGrant(articleID))
}
