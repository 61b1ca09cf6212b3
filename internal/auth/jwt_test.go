// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/paywall-blog/internal/config"
	"github.com/carterperez-dev/paywall-blog/internal/core"
	"github.com/carterperez-dev/paywall-blog/internal/middleware"
)

func testTokenConfig() (config.SessionConfig, config.VerifyConfig) {
	return config.SessionConfig{
			Secret:     "session-secret-for-tests-only-000",
			CookieName: "session",
			Lifetime:   168 * time.Hour,
			Issuer:     "paywall-blog-test",
		}, config.VerifyConfig{
			ConfirmSecret: "confirm-secret-for-tests-only-00",
			ConfirmExpire: 24 * time.Hour,
			DeleteSecret:  "delete-secret-for-tests-only-000",
			DeleteExpire:  15 * time.Minute,
		}
}

func newTestTokenManager(t *testing.T) *TokenManager {
	t.Helper()

	session, verify := testTokenConfig()
	m, err := NewTokenManager(session, verify)
	require.NoError(t, err)
	return m
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t)

	token, expiresAt, err := m.IssueSession(middleware.SessionClaims{
		UserID:   7,
		Username: "alice",
		Role:     "user",
		Grants:   EncodeGrants([]string{"deep-dive"}),
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(168*time.Hour), expiresAt, time.Minute)

	claims, err := m.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "user", claims.Role)
	assert.True(t, MatchesGrant("deep-dive", claims.Grants))
	assert.False(t, MatchesGrant("other", claims.Grants))
}

func TestSessionWithoutGrants(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t)

	token, _, err := m.IssueSession(middleware.SessionClaims{
		UserID:   0,
		Username: "alice",
		Role:     "user",
	})
	require.NoError(t, err)

	claims, err := m.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), claims.UserID)
	assert.Empty(t, claims.Grants)
}

func TestVerifySessionRejectsTampering(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t)

	token, _, err := m.IssueSession(middleware.SessionClaims{UserID: 1, Username: "bob", Role: "user"})
	require.NoError(t, err)

	_, err = m.VerifySession(token + "x")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	_, err = m.VerifySession("not-a-token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	other, _ := testTokenConfig()
	other.Secret = "a-completely-different-secret-0000"
	_, verify := testTokenConfig()
	forger, err := NewTokenManager(other, verify)
	require.NoError(t, err)

	forged, _, err := forger.IssueSession(middleware.SessionClaims{UserID: 1, Username: "bob", Role: "admin"})
	require.NoError(t, err)

	_, err = m.VerifySession(forged)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifySessionRejectsExpired(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t)
	m.now = func() time.Time { return time.Now().Add(-200 * time.Hour) }

	token, _, err := m.IssueSession(middleware.SessionClaims{UserID: 1, Username: "bob", Role: "user"})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.VerifySession(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestActionTokensAreScoped(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t)

	confirm, err := m.IssueAction(PurposeConfirm, 3)
	require.NoError(t, err)

	id, err := m.VerifyAction(PurposeConfirm, confirm)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)

	_, err = m.VerifyAction(PurposeDelete, confirm)
	assert.ErrorIs(t, err, core.ErrTokenInvalid, "confirm token must not delete")

	_, err = m.VerifySession(confirm)
	assert.ErrorIs(t, err, core.ErrTokenInvalid, "action token is not a session")

	session, _, err := m.IssueSession(middleware.SessionClaims{UserID: 3, Username: "c", Role: "user"})
	require.NoError(t, err)
	_, err = m.VerifyAction(PurposeConfirm, session)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	_, err = m.IssueAction(PurposeSession, 3)
	assert.ErrorIs(t, err, ErrUnknownPurpose)
	_, err = m.IssueAction(Purpose("reset"), 3)
	assert.ErrorIs(t, err, ErrUnknownPurpose)
}

func TestDeleteTokenExpiresQuickly(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t)
	m.now = func() time.Time { return time.Now().Add(-20 * time.Minute) }

	token, err := m.IssueAction(PurposeDelete, 3)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.VerifyAction(PurposeDelete, token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestNewTokenManagerRequiresSecrets(t *testing.T) {
	t.Parallel()

	session, verify := testTokenConfig()
	verify.DeleteSecret = ""
	_, err := NewTokenManager(session, verify)
	assert.Error(t, err)

	session, verify = testTokenConfig()
	session.Lifetime = 0
	_, err = NewTokenManager(session, verify)
	assert.Error(t, err)
}
