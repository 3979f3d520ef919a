package config

import (
	"fmt"
	"strings"
	"time"

	"provisiond/internal/domain"

	"github.com/caarlos0/env/v11"
)

const (
	AuthModeNone = "none"
	AuthModeJWT  = "jwt"

	RateLimitBackendAuto   = "auto"
	RateLimitBackendRedis  = "redis"
	RateLimitBackendMemory = "memory"
	RateLimitBackendNone   = "none"

	DirectoryModeGoogle = "google"
	DirectoryModeMemory = "memory"

	KeySourceEnv   = "env"
	KeySourceVault = "vault"
	KeySourceGCP   = "gcp"

	MailModeProvider = "provider"
	MailModeSES      = "ses"
	MailModeNone     = "none"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	PostgresDSN     string        `env:"POSTGRES_DSN"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON         bool          `env:"LOG_JSON" envDefault:"false"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	EmailDomain         string `env:"EMAIL_DOMAIN" envDefault:"awscommunity.mx"`
	CommunityConfigPath string `env:"COMMUNITY_CONFIG_PATH"`
	LocaleSuffix        string `env:"DISPLAY_NAME_LOCALE" envDefault:"México"`
	OrganizationName    string `env:"ORGANIZATION_NAME" envDefault:"AWS Community MX"`

	AuthMode           string   `env:"AUTH_MODE" envDefault:"jwt"`
	SessionJWTSecret   string   `env:"SESSION_JWT_SECRET"`
	SessionJWTIssuer   string   `env:"SESSION_JWT_ISSUER"`
	SessionJWTAudience string   `env:"SESSION_JWT_AUDIENCE"`
	AdminEmails        []string `env:"ADMIN_EMAILS" envSeparator:","`
	AdminAPIKey        string   `env:"ADMIN_API_KEY"`
	AdminPolicyPath    string   `env:"ADMIN_POLICY_PATH"`

	RateLimitBackend          string        `env:"RATE_LIMIT_BACKEND" envDefault:"auto"`
	RateLimitFailOpen         bool          `env:"RATE_LIMIT_FAIL_OPEN" envDefault:"true"`
	RateLimitMaxKeys          int           `env:"RATE_LIMIT_MAX_KEYS" envDefault:"10000"`
	RateLimitRegisterRequests int           `env:"RATE_LIMIT_REGISTER_REQUESTS" envDefault:"3"`
	RateLimitRegisterWindow   time.Duration `env:"RATE_LIMIT_REGISTER_WINDOW" envDefault:"1h"`
	RateLimitVerifyRequests   int           `env:"RATE_LIMIT_VERIFY_REQUESTS" envDefault:"10"`
	RateLimitVerifyWindow     time.Duration `env:"RATE_LIMIT_VERIFY_WINDOW" envDefault:"1m"`
	RateLimitCheckRequests    int           `env:"RATE_LIMIT_CHECK_REQUESTS" envDefault:"30"`
	RateLimitCheckWindow      time.Duration `env:"RATE_LIMIT_CHECK_WINDOW" envDefault:"1m"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	DirectoryMode           string        `env:"DIRECTORY_MODE" envDefault:"google"`
	ProviderTimeout         time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"30s"`
	GoogleKeySource         string        `env:"GOOGLE_KEY_SOURCE" envDefault:"env"`
	GoogleServiceAccountKey string        `env:"GOOGLE_SERVICE_ACCOUNT_KEY"`
	GoogleAdminEmail        string        `env:"GOOGLE_ADMIN_EMAIL"`

	VaultAddr           string `env:"VAULT_ADDR"`
	VaultToken          string `env:"VAULT_TOKEN"`
	VaultServiceKeyPath string `env:"VAULT_GOOGLE_KEY_PATH" envDefault:"secret/provisiond/google"`
	VaultServiceKeyName string `env:"VAULT_GOOGLE_KEY_FIELD" envDefault:"service_account_key"`

	GCPProjectID             string `env:"GCP_PROJECT_ID"`
	GCPServiceKeySecretID    string `env:"GCP_GOOGLE_KEY_SECRET_ID"`
	GCPSecretManagerEndpoint string `env:"GCP_SECRET_MANAGER_ENDPOINT" envDefault:"https://secretmanager.googleapis.com"`

	MailMode  string `env:"MAIL_MODE" envDefault:"provider"`
	MailFrom  string `env:"MAIL_FROM"`
	SESRegion string `env:"SES_REGION" envDefault:"us-east-1"`

	SecretHashCost     int `env:"SECRET_HASH_COST" envDefault:"10"`
	TempPasswordLength int `env:"TEMP_PASSWORD_LENGTH" envDefault:"16"`

	Communities domain.Communities `env:"-"`
}

func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AdminEmails = normalizeEmails(cfg.AdminEmails)

	communities := domain.DefaultCommunities()
	if cfg.CommunityConfigPath != "" {
		loaded, err := LoadCommunities(cfg.CommunityConfigPath)
		if err != nil {
			return Config{}, err
		}
		communities = loaded
	}
	cfg.Communities = communities
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.EmailDomain) == "" {
		return fmt.Errorf("EMAIL_DOMAIN is required")
	}
	switch c.AuthMode {
	case AuthModeNone:
	case AuthModeJWT:
		if c.SessionJWTSecret == "" {
			return fmt.Errorf("SESSION_JWT_SECRET is required when AUTH_MODE=jwt")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.AuthMode)
	}
	switch c.RateLimitBackend {
	case RateLimitBackendAuto, RateLimitBackendMemory, RateLimitBackendNone:
	case RateLimitBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when RATE_LIMIT_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_BACKEND %q", c.RateLimitBackend)
	}
	switch c.DirectoryMode {
	case DirectoryModeGoogle, DirectoryModeMemory:
	default:
		return fmt.Errorf("unsupported DIRECTORY_MODE %q", c.DirectoryMode)
	}
	if c.DirectoryMode == DirectoryModeGoogle {
		if c.GoogleAdminEmail == "" {
			return fmt.Errorf("GOOGLE_ADMIN_EMAIL is required when DIRECTORY_MODE=google")
		}
		switch c.GoogleKeySource {
		case KeySourceEnv:
			if c.GoogleServiceAccountKey == "" {
				return fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_KEY is required when GOOGLE_KEY_SOURCE=env")
			}
		case KeySourceVault:
			if c.VaultAddr == "" {
				return fmt.Errorf("VAULT_ADDR is required when GOOGLE_KEY_SOURCE=vault")
			}
		case KeySourceGCP:
			if c.GCPProjectID == "" || c.GCPServiceKeySecretID == "" {
				return fmt.Errorf("GCP_PROJECT_ID and GCP_GOOGLE_KEY_SECRET_ID are required when GOOGLE_KEY_SOURCE=gcp")
			}
		default:
			return fmt.Errorf("unsupported GOOGLE_KEY_SOURCE %q", c.GoogleKeySource)
		}
	}
	switch c.MailMode {
	case MailModeProvider, MailModeNone:
	case MailModeSES:
		if c.MailFrom == "" {
			return fmt.Errorf("MAIL_FROM is required when MAIL_MODE=ses")
		}
	default:
		return fmt.Errorf("unsupported MAIL_MODE %q", c.MailMode)
	}
	return c.Communities.Validate()
}

// RateLimitPolicies returns the budget of each admission tier.
func (c Config) RateLimitPolicies() map[domain.RateLimitTier]RateLimitPolicy {
	return map[domain.RateLimitTier]RateLimitPolicy{
		domain.TierRegister:      {Requests: c.RateLimitRegisterRequests, Window: c.RateLimitRegisterWindow},
		domain.TierVerifySecret:  {Requests: c.RateLimitVerifyRequests, Window: c.RateLimitVerifyWindow},
		domain.TierCheckUsername: {Requests: c.RateLimitCheckRequests, Window: c.RateLimitCheckWindow},
	}
}

type RateLimitPolicy struct {
	Requests int
	Window   time.Duration
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
