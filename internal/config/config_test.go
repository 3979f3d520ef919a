package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"provisiond/internal/domain"

	"github.com/stretchr/testify/require"
)

func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("DIRECTORY_MODE", "memory")
}

func TestFromEnvDefaults(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("ADMIN_EMAILS", " Admin@Example.com , ,ops@example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, "awscommunity.mx", cfg.EmailDomain)
	require.True(t, cfg.RateLimitFailOpen)
	require.Equal(t, []string{"admin@example.com", "ops@example.com"}, cfg.AdminEmails)
	require.Len(t, cfg.Communities, 4)

	policies := cfg.RateLimitPolicies()
	require.Equal(t, RateLimitPolicy{Requests: 3, Window: time.Hour}, policies[domain.TierRegister])
	require.Equal(t, RateLimitPolicy{Requests: 10, Window: time.Minute}, policies[domain.TierVerifySecret])
	require.Equal(t, RateLimitPolicy{Requests: 30, Window: time.Minute}, policies[domain.TierCheckUsername])
}

func TestFromEnvRequiresJWTSecret(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("SESSION_JWT_SECRET", "")

	_, err := FromEnv()
	require.ErrorContains(t, err, "SESSION_JWT_SECRET")
}

func TestFromEnvRejectsRedisBackendWithoutAddr(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("RATE_LIMIT_BACKEND", "redis")

	_, err := FromEnv()
	require.ErrorContains(t, err, "REDIS_ADDR")
}

func TestFromEnvGoogleKeySources(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("DIRECTORY_MODE", "google")
	t.Setenv("GOOGLE_ADMIN_EMAIL", "admin@awscommunity.mx")

	t.Setenv("GOOGLE_KEY_SOURCE", "env")
	_, err := FromEnv()
	require.ErrorContains(t, err, "GOOGLE_SERVICE_ACCOUNT_KEY")

	t.Setenv("GOOGLE_KEY_SOURCE", "vault")
	_, err = FromEnv()
	require.ErrorContains(t, err, "VAULT_ADDR")

	t.Setenv("VAULT_ADDR", "https://vault.internal:8200")
	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "secret/provisiond/google", cfg.VaultServiceKeyPath)

	t.Setenv("GOOGLE_KEY_SOURCE", "gcp")
	_, err = FromEnv()
	require.ErrorContains(t, err, "GCP_PROJECT_ID")
}

func TestFromEnvSESNeedsSender(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("MAIL_MODE", "ses")
	_, err := FromEnv()
	require.ErrorContains(t, err, "MAIL_FROM")
}

func TestLoadCommunities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "communities.yaml")
	body := `
communities:
  - type: ug
    label: User Group
    class: organization
    prefix: "ug."
    group: ug@example.org
    name_prefix: User Group
  - type: hero
    label: Hero
    class: person
    prefix: "hero."
    role_annotation: Hero
    org_unit: /Heroes
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	communities, err := LoadCommunities(path)
	require.NoError(t, err)
	require.Equal(t, []domain.CommunityType{"ug", "hero"}, communities.Types())

	hero, err := communities.Lookup("hero")
	require.NoError(t, err)
	require.True(t, hero.IsPerson())
	require.Equal(t, "/Heroes", hero.OrgUnit)
}

func TestLoadCommunitiesRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "communities.yaml")
	body := `
communities:
  - {type: cc, class: organization, prefix: "cc."}
  - {type: cc, class: organization, prefix: "cc2."}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	_, err := LoadCommunities(path)
	require.ErrorContains(t, err, "duplicate")
}
