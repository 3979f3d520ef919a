package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"provisiond/internal/config"
	"provisiond/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const defaultClockSkew = 30 * time.Second

// Claims carried by a sign-in session token. The token is minted by the
// sign-in frontend after federation completes and signed with the shared
// session secret.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Admin bool   `json:"admin,omitempty"`
}

type Authenticator struct {
	secret    []byte
	issuer    string
	audience  string
	clockSkew time.Duration
	admins    map[string]struct{}
	now       func() time.Time
}

type Option func(*Authenticator)

func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

func WithClockSkew(skew time.Duration) Option {
	return func(a *Authenticator) {
		if skew >= 0 {
			a.clockSkew = skew
		}
	}
}

func NewAuthenticator(cfg config.Config, opts ...Option) (*Authenticator, error) {
	secret := strings.TrimSpace(cfg.SessionJWTSecret)
	if secret == "" {
		return nil, errors.New("SESSION_JWT_SECRET is required")
	}
	auth := &Authenticator{
		secret:    []byte(secret),
		issuer:    strings.TrimSpace(cfg.SessionJWTIssuer),
		audience:  strings.TrimSpace(cfg.SessionJWTAudience),
		clockSkew: defaultClockSkew,
		admins:    make(map[string]struct{}, len(cfg.AdminEmails)),
		now:       time.Now,
	}
	for _, email := range cfg.AdminEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			auth.admins[email] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(auth)
	}
	return auth, nil
}

func (a *Authenticator) Authenticate(_ context.Context, bearerToken string) (domain.Principal, error) {
	if a == nil {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	tokenString := strings.TrimSpace(bearerToken)
	if tokenString == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, a.keyFunc, a.parserOptions()...)
	if err != nil || !token.Valid {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	principal := a.principalFromClaims(claims)
	if principal.Subject == "" || principal.Email == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return principal, nil
}

// Issue signs a session token for the given identity. Used by operator
// tooling and tests; production tokens come from the sign-in frontend.
func (a *Authenticator) Issue(subject, email string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}
	if a.audience != "" {
		claims.Audience = jwt.ClaimStrings{a.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return a.secret, nil
}

func (a *Authenticator) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.clockSkew),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}
	return opts
}

func (a *Authenticator) principalFromClaims(claims *Claims) domain.Principal {
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	_, listed := a.admins[email]
	return domain.Principal{
		Subject: claims.Subject,
		Email:   email,
		Admin:   claims.Admin || listed,
	}
}
