package domain

import "errors"

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidFormat = errors.New("invalid username format")
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidToken  = errors.New("invalid token")

	ErrInvalidCommunityType = errors.New("invalid community type")
	ErrEmailTaken           = errors.New("email already exists")
	ErrEmailExistsRemotely  = errors.New("email already exists in identity provider")

	ErrRateLimited            = errors.New("rate limit exceeded")
	ErrRateLimiterUnavailable = errors.New("rate limiter unavailable")

	ErrUpstream = errors.New("identity provider failure")
)

// RateLimitError carries the decision that rejected a request so the
// transport can surface reset information.
type RateLimitError struct {
	Tier     RateLimitTier
	Decision RateLimitDecision
}

func (e *RateLimitError) Error() string {
	return "rate limit exceeded for " + string(e.Tier)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
