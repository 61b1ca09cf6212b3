// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carterperez-dev/paywall-blog/internal/core"
	"github.com/carterperez-dev/paywall-blog/internal/mail"
	"github.com/carterperez-dev/paywall-blog/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
	ErrUsernameExists     = errors.New("username already exists")
)

const (
	ConfirmPath = "/confirm-user"
	DeletePath  = "/delete-user"
)

type UserInfo struct {
	ID        uint64
	Email     string
	Username  string
	Role      string
	Confirmed bool
	Articles  []string
	CreatedAt time.Time
}

type UserProvider interface {
	Register(ctx context.Context, email, username, password string) (*UserInfo, error)
	Authenticate(ctx context.Context, email, password string) (*UserInfo, error)
	GetByID(ctx context.Context, id uint64) (*UserInfo, error)
	Confirm(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error
}

// LoginRecorder counts login attempts by result.
type LoginRecorder interface {
	RecordLogin(ctx context.Context, result string)
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *UserInfo
}

type Service struct {
	users     UserProvider
	tokens    *TokenManager
	mailer    mail.Mailer
	publicURL string
	logins    LoginRecorder
	logger    *slog.Logger
}

func NewService(
	users UserProvider,
	tokens *TokenManager,
	mailer mail.Mailer,
	publicURL string,
	logins LoginRecorder,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:     users,
		tokens:    tokens,
		mailer:    mailer,
		publicURL: publicURL,
		logins:    logins,
		logger:    logger,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	info, err := s.users.Register(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	s.sendConfirmation(ctx, info)

	return s.issue(info)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	info, err := s.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) ||
			errors.Is(err, core.ErrUnauthorized) ||
			errors.Is(err, ErrInvalidCredentials) {
			s.recordLogin(ctx, "rejected")
			return nil, ErrInvalidCredentials
		}
		s.recordLogin(ctx, "error")
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	s.recordLogin(ctx, "success")
	return s.issue(info)
}

// Reissue mints a fresh session for userID so the token picks up the
// account's current role and grants.
func (s *Service) Reissue(ctx context.Context, userID uint64) (*Session, error) {
	info, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(info)
}

// ConfirmUser consumes a confirmation link token and returns the id it
// confirmed.
func (s *Service) ConfirmUser(ctx context.Context, token string) (uint64, error) {
	id, err := s.tokens.VerifyAction(PurposeConfirm, token)
	if err != nil {
		return 0, err
	}
	if err := s.users.Confirm(ctx, id); err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "user confirmed", "user_id", id)
	return id, nil
}

func (s *Service) ResendConfirmation(ctx context.Context, userID uint64) error {
	info, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if info.Confirmed {
		return nil
	}
	return s.sendAction(ctx, info, PurposeConfirm)
}

func (s *Service) RequestDeletion(ctx context.Context, userID uint64) error {
	info, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.sendAction(ctx, info, PurposeDelete)
}

// DeleteUser consumes a deletion link token and removes the account.
func (s *Service) DeleteUser(ctx context.Context, token string) (uint64, error) {
	id, err := s.tokens.VerifyAction(PurposeDelete, token)
	if err != nil {
		return 0, err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", id)
	return id, nil
}

func (s *Service) issue(info *UserInfo) (*Session, error) {
	token, expiresAt, err := s.tokens.IssueSession(middleware.SessionClaims{
		UserID:   info.ID,
		Username: info.Username,
		Role:     info.Role,
		Grants:   EncodeGrants(info.Articles),
	})
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	return &Session{Token: token, ExpiresAt: expiresAt, User: info}, nil
}

func (s *Service) sendConfirmation(ctx context.Context, info *UserInfo) {
	if info.Confirmed {
		return
	}
	if err := s.sendAction(ctx, info, PurposeConfirm); err != nil {
		// The account exists either way; the user can ask for a new link.
		s.logger.WarnContext(ctx, "confirmation mail failed",
			"user_id", info.ID,
			"error", err,
		)
	}
}

func (s *Service) sendAction(ctx context.Context, info *UserInfo, purpose Purpose) error {
	token, err := s.tokens.IssueAction(purpose, info.ID)
	if err != nil {
		return fmt.Errorf("issue %s token: %w", purpose, err)
	}

	var msg mail.Message
	switch purpose {
	case PurposeConfirm:
		msg = mail.ConfirmationMessage(info.Email, info.Username, mail.Link(s.publicURL, ConfirmPath, token))
	case PurposeDelete:
		msg = mail.DeletionMessage(info.Email, info.Username, mail.Link(s.publicURL, DeletePath, token))
	default:
		return ErrUnknownPurpose
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s mail: %w", purpose, err)
	}
	return nil
}

func (s *Service) recordLogin(ctx context.Context, result string) {
	if s.logins != nil {
		s.logins.RecordLogin(ctx, result)
	}
}
