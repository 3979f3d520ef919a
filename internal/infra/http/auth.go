package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"provisiond/internal/config"
	"provisiond/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	principalContextKey = "principal"
	adminKeySubject     = "admin-key"
	anonymousActor      = "anonymous"
)

// requireSession authenticates the bearer session token.
func (s *Server) requireSession(c *gin.Context) (domain.Principal, bool) {
	if s.cfg.AuthMode == config.AuthModeNone || s.authenticator == nil {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "sessions are not enabled")
		return domain.Principal{}, false
	}
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return domain.Principal{}, false
	}
	principal, err := s.authenticator.Authenticate(c.Request.Context(), token)
	if err != nil {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
		return domain.Principal{}, false
	}
	c.Set(principalContextKey, principal)
	return principal, true
}

// requireAdmin accepts either the static admin key or a session whose
// principal passes the admin policy for permission.
func (s *Server) requireAdmin(c *gin.Context, permission string) (domain.Principal, bool) {
	if key := strings.TrimSpace(c.GetHeader("X-Admin-Key")); key != "" {
		if s.adminAPIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
			return domain.Principal{}, false
		}
		principal := domain.Principal{Subject: adminKeySubject, Admin: true}
		c.Set(principalContextKey, principal)
		return principal, true
	}
	if s.cfg.AuthMode == config.AuthModeNone {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return domain.Principal{}, false
	}
	principal, ok := s.requireSession(c)
	if !ok {
		return domain.Principal{}, false
	}
	if s.authorizer != nil {
		if err := s.authorizer.Authorize(c.Request.Context(), principal, permission); err != nil {
			writeError(c, err)
			return domain.Principal{}, false
		}
	}
	return principal, true
}

// optionalActor names the caller for audit entries on public endpoints. A
// missing or invalid session is not an error there.
func (s *Server) optionalActor(c *gin.Context) string {
	if s.authenticator == nil {
		return anonymousActor
	}
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" {
		return anonymousActor
	}
	principal, err := s.authenticator.Authenticate(c.Request.Context(), token)
	if err != nil || principal.Email == "" {
		return anonymousActor
	}
	return principal.Email
}

func actorOf(principal domain.Principal) string {
	if principal.Email != "" {
		return principal.Email
	}
	return principal.Subject
}

func extractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if len(value) < len("bearer ") || !strings.EqualFold(value[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(value[len("bearer "):])
}

// clientAddress prefers the first X-Forwarded-For hop, then X-Real-IP.
func clientAddress(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		return realIP
	}
	return "unknown"
}
