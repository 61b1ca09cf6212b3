// AngelaMos | 2026
// resolver.go

package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/carterperez-dev/paywall-blog/internal/access"
	"github.com/carterperez-dev/paywall-blog/internal/content"
	"github.com/carterperez-dev/paywall-blog/internal/middleware"
)

// PreviewParam lets an admin read a page the way a regular account would.
const PreviewParam = "as"

type ConfirmationChecker interface {
	IsConfirmed(ctx context.Context, userID uint64) bool
}

type ArticleIndex interface {
	Metadata(key content.Key) (content.PaywallMetadata, bool)
}

type SessionVerifier interface {
	VerifySession(token string) (*middleware.SessionClaims, error)
}

// SessionStatus is the outcome of resolving a request's session against one
// content item. UserID and Username are zero when Tier is NoAuth.
type SessionStatus struct {
	UserID   uint64
	Username string
	Role     string
	Tier     access.Tier
}

func (s SessionStatus) Authenticated() bool {
	return s.Tier.AtLeast(access.Unconfirmed)
}

// Resolver maps a session token and a target item to an access tier.
// It never mutates the account store.
type Resolver struct {
	tokens     SessionVerifier
	accounts   ConfirmationChecker
	articles   ArticleIndex
	cookieName string
	logger     *slog.Logger
}

func NewResolver(
	tokens SessionVerifier,
	accounts ConfirmationChecker,
	articles ArticleIndex,
	cookieName string,
	logger *slog.Logger,
) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		tokens:     tokens,
		accounts:   accounts,
		articles:   articles,
		cookieName: cookieName,
		logger:     logger,
	}
}

// Resolve decodes token and decides the tier for key. An absent, expired or
// forged token resolves to NoAuth. With adminBypass false an admin is
// evaluated like any other confirmed account.
func (r *Resolver) Resolve(
	ctx context.Context,
	token string,
	key content.Key,
	adminBypass bool,
) SessionStatus {
	if token == "" {
		return SessionStatus{Tier: access.NoAuth}
	}

	claims, err := r.tokens.VerifySession(token)
	if err != nil {
		r.logger.DebugContext(ctx, "session token rejected", "error", err)
		return SessionStatus{Tier: access.NoAuth}
	}

	return r.resolveClaims(ctx, claims, key, adminBypass)
}

func (r *Resolver) resolveClaims(
	ctx context.Context,
	claims *middleware.SessionClaims,
	key content.Key,
	adminBypass bool,
) SessionStatus {
	status := SessionStatus{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}

	if adminBypass && claims.IsAdmin() {
		status.Tier = access.Admin
		return status
	}

	if meta, ok := r.articles.Metadata(key); ok &&
		MatchesGrant(meta.Identifier, claims.Grants) {
		status.Tier = access.PaidForItem
		return status
	}

	if r.accounts.IsConfirmed(ctx, claims.UserID) {
		status.Tier = access.Confirmed
		return status
	}

	status.Tier = access.Unconfirmed
	return status
}

// RequestTier reads the session cookie from req. Admins can append
// ?as=reader to see what a regular account sees.
func (r *Resolver) RequestTier(req *http.Request, key content.Key) access.Tier {
	token := middleware.ExtractToken(req, r.cookieName)
	bypass := req.URL.Query().Get(PreviewParam) == ""
	return r.Resolve(req.Context(), token, key, bypass).Tier
}

var _ content.TierResolver = (*Resolver)(nil)
