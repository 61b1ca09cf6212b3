// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/carterperez-dev/paywall-blog/internal/auth"
	"github.com/carterperez-dev/paywall-blog/internal/content"
)

// ArticleCatalog resolves purchased article identifiers to their titles.
type ArticleCatalog interface {
	MetadataByIdentifier(id string) (content.PaywallMetadata, bool)
}

type Service struct {
	store   *Store
	catalog ArticleCatalog
	logger  *slog.Logger
}

func NewService(store *Store, catalog ArticleCatalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, catalog: catalog, logger: logger}
}

func (s *Service) Register(
	ctx context.Context,
	email, username, password string,
) (*auth.UserInfo, error) {
	id, err := s.store.Create(ctx, email, username, password)
	if err != nil {
		return nil, translate(err)
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Authenticate(
	ctx context.Context,
	email, password string,
) (*auth.UserInfo, error) {
	id, err := s.store.Authenticate(ctx, email, password)
	if err != nil {
		return nil, translate(err)
	}
	return s.GetByID(ctx, id)
}

func (s *Service) GetByID(ctx context.Context, id uint64) (*auth.UserInfo, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

func (s *Service) Confirm(ctx context.Context, id uint64) error {
	return s.store.Confirm(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uint64) error {
	return s.store.Delete(ctx, id)
}

// SeedAdmin creates the configured admin account unless the email is
// already registered.
func (s *Service) SeedAdmin(ctx context.Context, email, username, password string) error {
	if email == "" {
		return nil
	}
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil
	}

	id, err := s.store.CreateAdmin(ctx, email, username, password)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "admin account seeded", "user_id", id, "username", username)
	return nil
}

func (s *Service) Dashboard(ctx context.Context, id uint64) (*DashboardResponse, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	articles := make([]ArticleResponse, 0, len(u.Articles))
	for _, articleID := range u.Articles {
		a := ArticleResponse{Identifier: articleID}
		if s.catalog != nil {
			if meta, ok := s.catalog.MetadataByIdentifier(articleID); ok {
				a.Title = meta.Title
				a.Link = meta.Link
			}
		}
		articles = append(articles, a)
	}

	return &DashboardResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Confirmed: u.Confirmed,
		Articles:  articles,
		CreatedAt: u.CreatedAt,
	}, nil
}

func (s *Service) GetUser(ctx context.Context, id uint64) (*User, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, params ListUsersParams) ([]User, int) {
	params.Normalize()

	all := s.store.List(ctx)
	total := len(all)

	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return all[start:end], total
}

func (s *Service) GrantArticle(ctx context.Context, id uint64, articleID string) error {
	return s.store.GrantArticle(ctx, id, articleID)
}

func (s *Service) DeleteUser(ctx context.Context, requesterID, targetID uint64) error {
	target, err := s.store.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if target.IsAdmin() && requesterID != targetID {
		return ErrAdminProtected
	}
	return s.store.Delete(ctx, targetID)
}

func (s *Service) Stats() Stats {
	return s.store.Stats()
}

func translate(err error) error {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return errors.Join(auth.ErrEmailExists, err)
	case errors.Is(err, ErrUsernameTaken):
		return errors.Join(auth.ErrUsernameExists, err)
	case errors.Is(err, ErrBadCredentials):
		return errors.Join(auth.ErrInvalidCredentials, err)
	default:
		return err
	}
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		Confirmed: u.Confirmed,
		Articles:  u.Articles,
		CreatedAt: u.CreatedAt,
	}
}

var _ auth.UserProvider = (*Service)(nil)
