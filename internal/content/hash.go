// AngelaMos | 2026
// hash.go

package content

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// HashRendering is the default cache hash: xxhash64 of the body in hex.
func HashRendering(body []byte) string {
	return strconv.FormatUint(xxhash.Sum64(body), 16)
}
