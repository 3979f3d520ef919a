package usecase

import (
	"context"
	"log/slog"
	"time"

	"provisiond/internal/domain"
)

type AdmissionPolicy struct {
	Limit  int
	Window time.Duration
}

// AdmissionLimiter gates public operations per (tier, client address). A nil
// limiter admits everything; backend errors admit when FailOpen is set.
type AdmissionLimiter struct {
	Limiter  domain.RateLimiter
	Policies map[domain.RateLimitTier]AdmissionPolicy
	FailOpen bool
	Logger   *slog.Logger
	Metrics  Metrics
}

func (a *AdmissionLimiter) Check(ctx context.Context, tier domain.RateLimitTier, identifier string) (domain.RateLimitDecision, error) {
	if a == nil || a.Limiter == nil {
		return domain.RateLimitDecision{Allowed: true}, nil
	}
	policy, ok := a.Policies[tier]
	if !ok || policy.Limit <= 0 {
		return domain.RateLimitDecision{Allowed: true}, nil
	}
	if identifier == "" {
		identifier = "unknown"
	}
	key := "ratelimit:" + string(tier) + ":" + identifier

	decision, err := a.Limiter.Allow(ctx, key, policy.Limit, policy.Window)
	if err != nil {
		a.logger().Warn("rate limiter unavailable",
			"err", err,
			slog.String("tier", string(tier)),
			slog.Bool("fail_open", a.FailOpen))
		if a.FailOpen {
			metricsOrNoop(a.Metrics).ObserveAdmission(tier, true)
			return domain.RateLimitDecision{Allowed: true, Limit: policy.Limit, Remaining: -1}, nil
		}
		metricsOrNoop(a.Metrics).ObserveAdmission(tier, false)
		return domain.RateLimitDecision{}, domain.ErrRateLimiterUnavailable
	}
	metricsOrNoop(a.Metrics).ObserveAdmission(tier, decision.Allowed)
	if !decision.Allowed {
		return decision, &domain.RateLimitError{Tier: tier, Decision: decision}
	}
	return decision, nil
}

func (a *AdmissionLimiter) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
