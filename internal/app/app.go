// Package app assembles the provisioning services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"provisiond/internal/config"
	"provisiond/internal/domain"
	"provisiond/internal/infra/auth/session"
	"provisiond/internal/infra/db"
	"provisiond/internal/infra/directory"
	"provisiond/internal/infra/mail"
	"provisiond/internal/infra/metrics"
	"provisiond/internal/infra/policyopa"
	"provisiond/internal/infra/ratelimit"
	"provisiond/internal/usecase"
)

// App holds every wired component. Fields are nil when the corresponding
// feature is disabled by configuration.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Store   *db.Store
	Metrics *metrics.Recorder

	Limiter       domain.RateLimiter
	Provider      domain.IdentityProvider
	Mailer        domain.Mailer
	Authenticator domain.Authenticator
	Authorizer    domain.Authorizer

	Audit         *usecase.AuditEmitter
	Admission     *usecase.AdmissionLimiter
	Secrets       *usecase.SecretVerifier
	Allocator     *usecase.Allocator
	Registrations *usecase.Orchestrator
	Deprovisioner *usecase.Deprovisioner
	Profiles      *usecase.ProfileService
	AdminQueries  *usecase.AdminQueries
}

// Build connects the store named by cfg and wires every component on it.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store, err := db.NewStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, store, logger)
}

// New wires the components on an already opened store.
func New(ctx context.Context, cfg config.Config, store *db.Store, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Metrics: metrics.New(),
	}
	var err error
	if a.Limiter, err = buildLimiter(cfg, logger); err != nil {
		return nil, err
	}
	if a.Provider, a.Mailer, err = buildDirectory(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if cfg.AuthMode == config.AuthModeJWT {
		if a.Authenticator, err = session.NewAuthenticator(cfg); err != nil {
			return nil, err
		}
	}
	if a.Authorizer, err = policyopa.NewAuthorizer(ctx, cfg.AdminEmails, cfg.AdminPolicyPath); err != nil {
		return nil, err
	}
	a.wireUsecases()
	return a, nil
}

func (a *App) wireUsecases() {
	cfg := a.Config
	accounts := a.Store.Accounts()

	a.Audit = usecase.NewAuditEmitter(a.Store.AuditEntries(), nil, a.Logger)
	a.Audit.Metrics = a.Metrics

	policies := make(map[domain.RateLimitTier]usecase.AdmissionPolicy)
	for tier, p := range cfg.RateLimitPolicies() {
		policies[tier] = usecase.AdmissionPolicy{Limit: p.Requests, Window: p.Window}
	}
	if a.Limiter != nil {
		a.Admission = &usecase.AdmissionLimiter{
			Limiter:  a.Limiter,
			Policies: policies,
			FailOpen: cfg.RateLimitFailOpen,
			Logger:   a.Logger,
			Metrics:  a.Metrics,
		}
	}

	a.Secrets = usecase.NewSecretVerifier(a.Store.Secrets(), a.Audit, cfg.Communities, cfg.SecretHashCost)
	a.Secrets.Authorizer = a.Authorizer
	a.Allocator = &usecase.Allocator{
		Accounts:    accounts,
		Communities: cfg.Communities,
		Domain:      cfg.EmailDomain,
	}
	a.Registrations = &usecase.Orchestrator{
		Admission:        a.Admission,
		Secrets:          a.Secrets,
		Allocator:        a.Allocator,
		Accounts:         accounts,
		Provider:         a.Provider,
		Mailer:           a.Mailer,
		Audit:            a.Audit,
		CredentialLength: cfg.TempPasswordLength,
		Locale:           cfg.LocaleSuffix,
		Organization:     cfg.OrganizationName,
		Logger:           a.Logger,
		Metrics:          a.Metrics,
	}
	a.Deprovisioner = &usecase.Deprovisioner{
		Accounts:   accounts,
		Provider:   a.Provider,
		Authorizer: a.Authorizer,
		Audit:      a.Audit,
		Logger:     a.Logger,
		Metrics:    a.Metrics,
	}
	a.Profiles = &usecase.ProfileService{
		Accounts: accounts,
		Provider: a.Provider,
		Audit:    a.Audit,
		Logger:   a.Logger,
		Metrics:  a.Metrics,
	}
	a.AdminQueries = &usecase.AdminQueries{
		Accounts:   accounts,
		Audit:      a.Store.AuditEntries(),
		Authorizer: a.Authorizer,
	}
}

func (a *App) Close() error {
	if a == nil || a.Store == nil || a.Store.DB == nil {
		return nil
	}
	return a.Store.Close()
}

// buildLimiter returns nil when rate limiting is disabled.
func buildLimiter(cfg config.Config, logger *slog.Logger) (domain.RateLimiter, error) {
	memory := func() domain.RateLimiter {
		return ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: cfg.RateLimitMaxKeys})
	}
	switch cfg.RateLimitBackend {
	case config.RateLimitBackendNone:
		logger.Warn("rate limiting disabled")
		return nil, nil
	case config.RateLimitBackendMemory:
		return memory(), nil
	case config.RateLimitBackendRedis:
		return ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, nil)
	case config.RateLimitBackendAuto, "":
		if cfg.RedisAddr == "" {
			return memory(), nil
		}
		limiter, err := ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, nil)
		if err != nil {
			logger.Warn("redis limiter unavailable, using in-memory limiter", "err", err)
			return memory(), nil
		}
		return limiter, nil
	default:
		return nil, fmt.Errorf("unsupported RATE_LIMIT_BACKEND %q", cfg.RateLimitBackend)
	}
}

func buildDirectory(ctx context.Context, cfg config.Config, logger *slog.Logger) (domain.IdentityProvider, domain.Mailer, error) {
	var (
		provider domain.IdentityProvider
		mailer   domain.Mailer
	)
	switch cfg.DirectoryMode {
	case config.DirectoryModeMemory:
		mem := directory.NewMemoryDirectory(logger)
		provider, mailer = mem, mem
	case config.DirectoryModeGoogle:
		keyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		key, err := directory.LoadServiceAccountKey(keyCtx, cfg)
		if err != nil {
			return nil, nil, err
		}
		google, err := directory.NewGoogleDirectory(ctx, key, directory.GoogleConfig{
			AdminEmail: cfg.GoogleAdminEmail,
			Timeout:    cfg.ProviderTimeout,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}
		provider, mailer = google, google
	default:
		return nil, nil, fmt.Errorf("unsupported DIRECTORY_MODE %q", cfg.DirectoryMode)
	}

	switch cfg.MailMode {
	case config.MailModeNone:
		mailer = nil
	case config.MailModeSES:
		ses, err := mail.NewSESMailer(cfg.SESRegion, "", cfg.MailFrom, logger)
		if err != nil {
			return nil, nil, err
		}
		mailer = ses
	}
	if provider == nil {
		return nil, nil, errors.New("identity provider not configured")
	}
	return provider, mailer, nil
}
