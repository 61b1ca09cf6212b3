// AngelaMos | 2026
// store.go

package user

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/paywall-blog/internal/core"
)

type record struct {
	user     User
	articles map[string]struct{}
}

// Store is the in-memory account and entitlement store. The primary map and
// both secondary indexes sit behind one mutex so no reader can see a
// record that is present in one index and missing from another.
type Store struct {
	mu         sync.RWMutex
	nextID     uint64
	byID       map[uint64]*record
	byEmail    map[string]uint64
	byUsername map[string]uint64

	hasher   PasswordHasher
	validate *validator.Validate
	now      func() time.Time
}

func NewStore(hasher PasswordHasher) *Store {
	if hasher == nil {
		hasher = NewArgon2Hasher()
	}
	return &Store{
		byID:       make(map[uint64]*record),
		byEmail:    make(map[string]uint64),
		byUsername: make(map[string]uint64),
		hasher:     hasher,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Create registers a regular, unconfirmed user and returns its id. Ids are
// assigned from zero upwards and never reused.
func (s *Store) Create(
	ctx context.Context,
	email, username, password string,
) (uint64, error) {
	return s.create(ctx, NewUser{
		Email:    strings.TrimSpace(email),
		Username: strings.TrimSpace(username),
		Password: password,
		Role:     RoleUser,
	}, false)
}

// CreateAdmin registers a confirmed admin account.
func (s *Store) CreateAdmin(
	ctx context.Context,
	email, username, password string,
) (uint64, error) {
	return s.create(ctx, NewUser{
		Email:    strings.TrimSpace(email),
		Username: strings.TrimSpace(username),
		Password: password,
		Role:     RoleAdmin,
	}, true)
}

func (s *Store) create(ctx context.Context, nu NewUser, confirmed bool) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := s.validate.Struct(nu); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrValidationFailed, core.FormatValidationError(err))
	}

	// Hashing is slow, keep it outside the critical section.
	hash, err := s.hasher.Hash(nu.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	emailKey := normalizeEmail(nu.Email)
	nameKey := normalizeUsername(nu.Username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[emailKey]; taken {
		return 0, ErrEmailTaken
	}
	if _, taken := s.byUsername[nameKey]; taken {
		return 0, ErrUsernameTaken
	}

	id := s.nextID
	s.nextID++

	s.byID[id] = &record{
		user: User{
			ID:           id,
			Email:        emailKey,
			Username:     nu.Username,
			PasswordHash: hash,
			Role:         nu.Role,
			Confirmed:    confirmed,
			CreatedAt:    s.now().UTC(),
		},
		articles: make(map[string]struct{}),
	}
	s.byEmail[emailKey] = id
	s.byUsername[nameKey] = id

	return id, nil
}

// Authenticate checks an email and password pair. Unknown emails spend
// the same hashing work as known ones.
func (s *Store) Authenticate(
	ctx context.Context,
	email, password string,
) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	id, ok := s.byEmail[normalizeEmail(email)]
	var encoded string
	if ok {
		encoded = s.byID[id].user.PasswordHash
	}
	s.mu.RUnlock()

	if !ok {
		core.BurnPasswordCheck(password)
		return 0, ErrUserNotFound
	}

	valid, err := s.hasher.Verify(password, encoded)
	if err != nil {
		return 0, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return 0, ErrBadCredentials
	}

	if rh, ok := s.hasher.(Rehasher); ok && rh.NeedsRehash(encoded) {
		s.rehash(id, encoded, password)
	}

	return id, nil
}

// rehash upgrades a stored hash to the current parameters. A concurrent
// password change wins over the upgrade.
func (s *Store) rehash(id uint64, previous, password string) {
	upgraded, err := s.hasher.Hash(password)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byID[id]; ok && rec.user.PasswordHash == previous {
		rec.user.PasswordHash = upgraded
	}
}

func (s *Store) Confirm(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	rec.user.Confirmed = true
	return nil
}

func (s *Store) IsConfirmed(_ context.Context, id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	return ok && rec.user.Confirmed
}

// GrantArticle records an entitlement. Granting an article the user
// already owns is a no-op.
func (s *Store) GrantArticle(_ context.Context, id uint64, articleID string) error {
	if articleID == "" {
		return fmt.Errorf("%w: empty article id", ErrValidationFailed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	rec.articles[articleID] = struct{}{}
	return nil
}

func (s *Store) HasArticle(_ context.Context, id uint64, articleID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return false
	}
	_, owned := rec.articles[articleID]
	return owned
}

func (s *Store) Articles(_ context.Context, id uint64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return sortedArticles(rec.articles), nil
}

// Delete removes the record from every index at once.
func (s *Store) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}

	delete(s.byEmail, normalizeEmail(rec.user.Email))
	delete(s.byUsername, normalizeUsername(rec.user.Username))
	delete(s.byID, id)
	return nil
}

func (s *Store) Get(_ context.Context, id uint64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return rec.snapshot(), nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.byID[id].snapshot(), nil
}

// List returns users ordered by id.
func (s *Store) List(_ context.Context) []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]User, 0, len(s.byID))
	for _, rec := range s.byID {
		users = append(users, *rec.snapshot())
	}
	slices.SortFunc(users, func(a, b User) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return users
}

type Stats struct {
	Users        int `json:"users"`
	Confirmed    int `json:"confirmed"`
	Admins       int `json:"admins"`
	Entitlements int `json:"entitlements"`
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Users: len(s.byID)}
	for _, rec := range s.byID {
		if rec.user.Confirmed {
			st.Confirmed++
		}
		if rec.user.IsAdmin() {
			st.Admins++
		}
		st.Entitlements += len(rec.articles)
	}
	return st
}

// Len reports how many accounts exist.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// consistent reports whether every index agrees with the primary map.
// Tests use it to detect torn updates.
func (s *Store) consistent() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.byEmail) != len(s.byID) || len(s.byUsername) != len(s.byID) {
		return errors.New("index sizes diverge")
	}
	for id, rec := range s.byID {
		if s.byEmail[normalizeEmail(rec.user.Email)] != id {
			return fmt.Errorf("email index missing %d", id)
		}
		if s.byUsername[normalizeUsername(rec.user.Username)] != id {
			return fmt.Errorf("username index missing %d", id)
		}
	}
	return nil
}

func (r *record) snapshot() *User {
	u := r.user
	u.Articles = sortedArticles(r.articles)
	return &u
}

func sortedArticles(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}
