package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"provisiond/internal/domain"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, "INTERNAL", "internal error"
	var limited *domain.RateLimitError
	switch {
	case errors.As(err, &limited):
		writeRateLimitHeaders(c, limited.Decision)
		status, code, message = http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, try again later"
	case errors.Is(err, domain.ErrRateLimiterUnavailable):
		status, code, message = http.StatusServiceUnavailable, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable"
	case errors.Is(err, domain.ErrInvalidToken):
		status, code, message = http.StatusBadRequest, "INVALID_TOKEN", "invalid or expired access token"
	case errors.Is(err, domain.ErrInvalidCommunityType):
		status, code, message = http.StatusBadRequest, "INVALID_COMMUNITY_TYPE", err.Error()
	case errors.Is(err, domain.ErrInvalidFormat):
		status, code, message = http.StatusBadRequest, "INVALID_FORMAT", err.Error()
	case errors.Is(err, domain.ErrInvalidName):
		status, code, message = http.StatusBadRequest, "INVALID_NAME", err.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		status, code, message = http.StatusBadRequest, "INVALID_INPUT", err.Error()
	case errors.Is(err, domain.ErrEmailTaken):
		status, code, message = http.StatusConflict, "EMAIL_TAKEN", "email address is already taken"
	case errors.Is(err, domain.ErrEmailExistsRemotely):
		status, code, message = http.StatusConflict, "EMAIL_EXISTS_REMOTELY", "email address already exists in the directory"
	case errors.Is(err, domain.ErrUpstream):
		status, code, message = http.StatusBadGateway, "UPSTREAM_FAILURE", "identity provider request failed"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		status, code, message = http.StatusForbidden, "FORBIDDEN", "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", "not found"
	}
	writeErrorCode(c, status, code, message)
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
