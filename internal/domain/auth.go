package domain

import "context"

type Principal struct {
	Subject string
	Email   string
	Admin   bool
}

type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (Principal, error)
}

// Authorizer decides whether a principal may perform an administrative action.
type Authorizer interface {
	Authorize(ctx context.Context, principal Principal, action string) error
}

const (
	PermissionSecretsRotate  = "secrets:rotate"
	PermissionSecretsRead    = "secrets:read"
	PermissionAccountsRead   = "accounts:read"
	PermissionAccountsDelete = "accounts:delete"
	PermissionAuditRead      = "audit:read"
)
