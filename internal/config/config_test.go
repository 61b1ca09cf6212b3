// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
session:
  secret: session-secret-for-tests-000000
verify:
  confirm_secret: confirm-secret-for-tests-00000
  delete_secret: delete-secret-for-tests-000000
content:
  root: ./site
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := load(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "session", c.Session.CookieName)
	assert.Equal(t, 168*time.Hour, c.Session.Lifetime)
	assert.Equal(t, 24*time.Hour, c.Verify.ConfirmExpire)
	assert.Equal(t, 15*time.Minute, c.Verify.DeleteExpire)
	assert.Equal(t, []string{".html"}, c.Content.Extensions)
	assert.Equal(t, "log", c.Mail.Driver)
	assert.Equal(t, "0.0.0.0:8080", c.Server.Address())
	assert.True(t, c.IsDevelopment())
	assert.Empty(t, c.Database.URL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("CONTENT_ROOT", "/srv/blog")
	t.Setenv("SESSION_LIFETIME", "2h")
	t.Setenv("PORT", "9090")

	c, err := load(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "/srv/blog", c.Content.Root)
	assert.Equal(t, 2*time.Hour, c.Session.Lifetime)
	assert.Equal(t, 9090, c.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		extra string
		want  string
	}{
		{
			name:  "unknown mail driver",
			extra: "mail:\n  driver: smtp\n",
			want:  "mail.driver",
		},
		{
			name:  "admin email without password",
			extra: "admin:\n  email: root@test.com\n",
			want:  "ADMIN_PASSWORD",
		},
		{
			name:  "production without webhook secret",
			extra: "app:\n  environment: production\n",
			want:  "PAYMENT_WEBHOOK_SECRET",
		},
		{
			name:  "wildcard origin with credentials",
			extra: "cors:\n  allowed_origins: ['*']\n",
			want:  "wildcard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(writeConfig(t, baseYAML+tt.extra))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateRejectsSharedSecrets(t *testing.T) {
	body := `
session:
  secret: same-secret-everywhere-00000000
verify:
  confirm_secret: same-secret-everywhere-00000000
  delete_secret: delete-secret-for-tests-000000
content:
  root: ./site
`
	_, err := load(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoadRequiresSecrets(t *testing.T) {
	_, err := load(writeConfig(t, "content:\n  root: ./site\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}
