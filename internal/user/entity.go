// AngelaMos | 2026
// entity.go

package user

import (
	"fmt"
	"time"

	"github.com/carterperez-dev/paywall-blog/internal/core"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrEmailTaken       = fmt.Errorf("email already registered: %w", core.ErrDuplicateKey)
	ErrUsernameTaken    = fmt.Errorf("username already registered: %w", core.ErrDuplicateKey)
	ErrValidationFailed = fmt.Errorf("user validation failed: %w", core.ErrInvalidInput)
	ErrUserNotFound     = fmt.Errorf("user: %w", core.ErrNotFound)
	ErrBadCredentials   = fmt.Errorf("bad credentials: %w", core.ErrUnauthorized)
	ErrAdminProtected   = fmt.Errorf("admin accounts can only delete themselves: %w", core.ErrForbidden)
)

// User is a snapshot of a stored account. Mutating it does not affect the
// store.
type User struct {
	ID           uint64
	Email        string
	Username     string
	PasswordHash string
	Role         string
	Confirmed    bool
	Articles     []string
	CreatedAt    time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) HasArticle(articleID string) bool {
	for _, a := range u.Articles {
		if a == articleID {
			return true
		}
	}
	return false
}

// NewUser carries the fields checked before an account is committed.
type NewUser struct {
	Email    string `validate:"required,email,max=255"`
	Username string `validate:"required,min=1,max=64"`
	Password string `validate:"required,min=8,max=128"`
	Role     string `validate:"required,oneof=user admin"`
}
