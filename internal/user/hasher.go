// AngelaMos | 2026
// hasher.go

package user

import (
	"crypto/subtle"

	"github.com/carterperez-dev/paywall-blog/internal/core"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// Rehasher is implemented by hashers whose parameters can change between
// deployments.
type Rehasher interface {
	NeedsRehash(encoded string) bool
}

// Argon2Hasher stores argon2id hashes in the PHC string format.
type Argon2Hasher struct {
	Params core.Argon2Params
}

func NewArgon2Hasher() Argon2Hasher {
	return Argon2Hasher{Params: core.DefaultArgon2Params}
}

func (h Argon2Hasher) Hash(password string) (string, error) {
	return core.HashPasswordWith(h.Params, password)
}

func (h Argon2Hasher) Verify(password, encoded string) (bool, error) {
	return core.VerifyPassword(password, encoded)
}

func (h Argon2Hasher) NeedsRehash(encoded string) bool {
	return core.NeedsRehash(h.Params, encoded)
}

// PlainHasher keeps passwords as given. Only for tests.
type PlainHasher struct{}

func (PlainHasher) Hash(password string) (string, error) {
	return password, nil
}

func (PlainHasher) Verify(password, encoded string) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(password), []byte(encoded)) == 1, nil
}
