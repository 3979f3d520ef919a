package app

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"provisiond/internal/config"
	"provisiond/internal/domain"
	"provisiond/internal/infra/db"
	"provisiond/internal/infra/directory"

	"github.com/stretchr/testify/require"
)

func baseConfig() config.Config {
	return config.Config{
		EmailDomain:               "awscommunity.mx",
		AuthMode:                  config.AuthModeNone,
		RateLimitBackend:          config.RateLimitBackendMemory,
		RateLimitRegisterRequests: 3,
		RateLimitRegisterWindow:   time.Hour,
		DirectoryMode:             config.DirectoryModeMemory,
		MailMode:                  config.MailModeProvider,
		Communities:               domain.DefaultCommunities(),
	}
}

func TestNewWiresMemoryComponents(t *testing.T) {
	a, err := New(context.Background(), baseConfig(), &db.Store{}, slog.Default())
	require.NoError(t, err)

	_, ok := a.Provider.(*directory.MemoryDirectory)
	require.True(t, ok)
	require.Same(t, a.Provider, a.Mailer)
	require.Nil(t, a.Authenticator)
	require.NotNil(t, a.Authorizer)
	require.NotNil(t, a.Admission)
	require.Equal(t, 3, a.Admission.Policies[domain.TierRegister].Limit)
	require.Same(t, a.Secrets, a.Registrations.Secrets)
	require.Same(t, a.Audit, a.Registrations.Audit)
	require.NoError(t, a.Close())
}

func TestNewWithoutLimiterOrMail(t *testing.T) {
	cfg := baseConfig()
	cfg.RateLimitBackend = config.RateLimitBackendNone
	cfg.MailMode = config.MailModeNone

	a, err := New(context.Background(), cfg, &db.Store{}, nil)
	require.NoError(t, err)
	require.Nil(t, a.Limiter)
	require.Nil(t, a.Admission)
	require.Nil(t, a.Mailer)
	require.Nil(t, a.Registrations.Mailer)
}

func TestNewSessionMode(t *testing.T) {
	cfg := baseConfig()
	cfg.AuthMode = config.AuthModeJWT
	cfg.SessionJWTSecret = "secret"

	a, err := New(context.Background(), cfg, &db.Store{}, nil)
	require.NoError(t, err)
	require.NotNil(t, a.Authenticator)
}

func TestNewRejectsUnknownModes(t *testing.T) {
	cfg := baseConfig()
	cfg.DirectoryMode = "ldap"
	_, err := New(context.Background(), cfg, &db.Store{}, nil)
	require.Error(t, err)

	cfg = baseConfig()
	cfg.RateLimitBackend = "memcached"
	_, err = New(context.Background(), cfg, &db.Store{}, nil)
	require.Error(t, err)
}
