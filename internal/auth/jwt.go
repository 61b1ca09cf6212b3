// AngelaMos | 2026
// jwt.go

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/paywall-blog/internal/config"
	"github.com/carterperez-dev/paywall-blog/internal/core"
	"github.com/carterperez-dev/paywall-blog/internal/middleware"
)

// Purpose scopes a single-use action token. Each purpose is signed with
// its own secret so a token minted for one flow never verifies in another.
type Purpose string

const (
	PurposeSession Purpose = "session"
	PurposeConfirm Purpose = "confirm"
	PurposeDelete  Purpose = "delete"
)

const (
	claimType     = "type"
	claimRole     = "role"
	claimUserID   = "user_id"
	claimArticles = "accessible_articles"
)

var ErrUnknownPurpose = errors.New("unknown token purpose")

type signingKey struct {
	secret []byte
	expire time.Duration
}

type TokenManager struct {
	issuer string
	keys   map[Purpose]signingKey
	now    func() time.Time
}

func NewTokenManager(
	session config.SessionConfig,
	verify config.VerifyConfig,
) (*TokenManager, error) {
	keys := map[Purpose]signingKey{
		PurposeSession: {[]byte(session.Secret), session.Lifetime},
		PurposeConfirm: {[]byte(verify.ConfirmSecret), verify.ConfirmExpire},
		PurposeDelete:  {[]byte(verify.DeleteSecret), verify.DeleteExpire},
	}

	for purpose, k := range keys {
		if len(k.secret) == 0 {
			return nil, fmt.Errorf("%s secret is empty", purpose)
		}
		if k.expire <= 0 {
			return nil, fmt.Errorf("%s expiry must be positive", purpose)
		}
	}

	return &TokenManager{
		issuer: session.Issuer,
		keys:   keys,
		now:    time.Now,
	}, nil
}

// IssueSession signs a session token carrying the caller's hashed article
// grants. The returned time is the token's expiry.
func (m *TokenManager) IssueSession(
	claims middleware.SessionClaims,
) (string, time.Time, error) {
	key := m.keys[PurposeSession]
	now := m.now()
	expiresAt := now.Add(key.expire)

	grants := claims.Grants
	if grants == nil {
		grants = []string{}
	}

	builder := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Subject(claims.Username).
		IssuedAt(now).
		Expiration(expiresAt).
		Claim(claimType, string(PurposeSession)).
		Claim(claimRole, claims.Role).
		Claim(claimUserID, strconv.FormatUint(claims.UserID, 10)).
		Claim(claimArticles, grants)
	if m.issuer != "" {
		builder = builder.Issuer(m.issuer)
	}

	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), key.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), expiresAt, nil
}

func (m *TokenManager) VerifySession(
	tokenString string,
) (*middleware.SessionClaims, error) {
	token, err := m.parse(PurposeSession, tokenString)
	if err != nil {
		return nil, err
	}

	username, ok := token.Subject()
	if !ok || username == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	var role string
	if err := token.Get(claimRole, &role); err != nil {
		return nil, fmt.Errorf(
			"verify token: missing role claim: %w",
			core.ErrTokenInvalid,
		)
	}

	userID, err := userIDClaim(token)
	if err != nil {
		return nil, err
	}

	grants, err := grantsClaim(token)
	if err != nil {
		return nil, err
	}

	expiresAt, _ := token.Expiration()

	return &middleware.SessionClaims{
		UserID:    userID,
		Username:  username,
		Role:      role,
		Grants:    grants,
		ExpiresAt: expiresAt,
	}, nil
}

// IssueAction signs a short lived token for an emailed confirmation or
// deletion link.
func (m *TokenManager) IssueAction(
	purpose Purpose,
	userID uint64,
) (string, error) {
	if purpose == PurposeSession {
		return "", ErrUnknownPurpose
	}
	key, ok := m.keys[purpose]
	if !ok {
		return "", ErrUnknownPurpose
	}

	now := m.now()
	builder := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		IssuedAt(now).
		Expiration(now.Add(key.expire)).
		Claim(claimType, string(purpose)).
		Claim(claimUserID, strconv.FormatUint(userID, 10))
	if m.issuer != "" {
		builder = builder.Issuer(m.issuer)
	}

	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), key.secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return string(signed), nil
}

func (m *TokenManager) VerifyAction(
	purpose Purpose,
	tokenString string,
) (uint64, error) {
	if purpose == PurposeSession {
		return 0, ErrUnknownPurpose
	}

	token, err := m.parse(purpose, tokenString)
	if err != nil {
		return 0, err
	}

	return userIDClaim(token)
}

func (m *TokenManager) parse(purpose Purpose, tokenString string) (jwt.Token, error) {
	key, ok := m.keys[purpose]
	if !ok {
		return nil, ErrUnknownPurpose
	}

	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256(), key.secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	var tokenType string
	if err := token.Get(claimType, &tokenType); err != nil ||
		tokenType != string(purpose) {
		return nil, fmt.Errorf(
			"verify token: invalid token type: %w",
			core.ErrTokenInvalid,
		)
	}

	return token, nil
}

func userIDClaim(token jwt.Token) (uint64, error) {
	var raw string
	if err := token.Get(claimUserID, &raw); err != nil {
		return 0, fmt.Errorf(
			"verify token: missing user_id claim: %w",
			core.ErrTokenInvalid,
		)
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf(
			"verify token: malformed user_id claim: %w",
			core.ErrTokenInvalid,
		)
	}
	return id, nil
}

func grantsClaim(token jwt.Token) ([]string, error) {
	var raw any
	if err := token.Get(claimArticles, &raw); err != nil {
		return nil, fmt.Errorf(
			"verify token: missing accessible_articles claim: %w",
			core.ErrTokenInvalid,
		)
	}

	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		grants := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf(
					"verify token: malformed accessible_articles claim: %w",
					core.ErrTokenInvalid,
				)
			}
			grants = append(grants, s)
		}
		return grants, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf(
			"verify token: malformed accessible_articles claim: %w",
			core.ErrTokenInvalid,
		)
	}
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		(strings.Contains(errStr, "not satisfied") ||
			strings.Contains(errStr, "expired"))
}
