package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"provisiond/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestAdmissionLimiter_RejectsOverLimit(t *testing.T) {
	limiter := &stubLimiter{allow: 3}
	a := &AdmissionLimiter{
		Limiter:  limiter,
		Policies: map[domain.RateLimitTier]AdmissionPolicy{domain.TierRegister: {Limit: 3, Window: time.Hour}},
	}
	for i := 0; i < 3; i++ {
		d, err := a.Check(context.Background(), domain.TierRegister, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := a.Check(context.Background(), domain.TierRegister, "10.0.0.1")
	require.ErrorIs(t, err, domain.ErrRateLimited)
	require.False(t, d.Allowed)

	var rl *domain.RateLimitError
	require.True(t, errors.As(err, &rl))
	require.Equal(t, domain.TierRegister, rl.Tier)
}

func TestAdmissionLimiter_UnconfiguredTierAllows(t *testing.T) {
	a := &AdmissionLimiter{Limiter: &stubLimiter{allow: 0}}
	d, err := a.Check(context.Background(), domain.TierCheckUsername, "ip")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	var nilLimiter *AdmissionLimiter
	d, err = nilLimiter.Check(context.Background(), domain.TierRegister, "ip")
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestAdmissionLimiter_BackendFailure(t *testing.T) {
	policies := map[domain.RateLimitTier]AdmissionPolicy{domain.TierVerifySecret: {Limit: 10, Window: time.Minute}}
	backend := &stubLimiter{err: errors.New("redis: connection refused")}

	open := &AdmissionLimiter{Limiter: backend, Policies: policies, FailOpen: true}
	d, err := open.Check(context.Background(), domain.TierVerifySecret, "ip")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	closed := &AdmissionLimiter{Limiter: backend, Policies: policies}
	_, err = closed.Check(context.Background(), domain.TierVerifySecret, "ip")
	require.ErrorIs(t, err, domain.ErrRateLimiterUnavailable)
}
