package policyopa

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"provisiond/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyAllowsConfiguredAdmins(t *testing.T) {
	ctx := context.Background()
	authz, err := NewAuthorizer(ctx, []string{" Ops@Example.org "}, "")
	require.NoError(t, err)

	err = authz.Authorize(ctx, domain.Principal{Subject: "u1", Email: "ops@example.org"}, domain.PermissionAccountsDelete)
	require.NoError(t, err)

	err = authz.Authorize(ctx, domain.Principal{Subject: "u2", Email: "OPS@EXAMPLE.ORG"}, domain.PermissionAuditRead)
	require.NoError(t, err)
}

func TestDefaultPolicyHonoursAdminClaim(t *testing.T) {
	ctx := context.Background()
	authz, err := NewAuthorizer(ctx, nil, "")
	require.NoError(t, err)

	err = authz.Authorize(ctx, domain.Principal{Subject: "u1", Admin: true}, domain.PermissionSecretsRotate)
	require.NoError(t, err)
}

func TestDefaultPolicyDeniesEveryoneElse(t *testing.T) {
	ctx := context.Background()
	authz, err := NewAuthorizer(ctx, []string{"ops@example.org"}, "")
	require.NoError(t, err)

	err = authz.Authorize(ctx, domain.Principal{Subject: "u1", Email: "member@example.org"}, domain.PermissionAccountsRead)
	require.True(t, errors.Is(err, domain.ErrForbidden))

	err = authz.Authorize(ctx, domain.Principal{}, domain.PermissionAccountsRead)
	require.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestCustomPolicyFromPath(t *testing.T) {
	dir := t.TempDir()
	policy := `package provisiond.admin

import future.keywords.if

default allow := false

allow if {
	input.action == "audit:read"
	endswith(input.principal.email, "@auditors.example.org")
}
`
	path := filepath.Join(dir, "admin.rego")
	require.NoError(t, os.WriteFile(path, []byte(policy), 0o600))

	ctx := context.Background()
	authz, err := NewAuthorizer(ctx, nil, path)
	require.NoError(t, err)

	principal := domain.Principal{Subject: "a1", Email: "jane@auditors.example.org"}
	require.NoError(t, authz.Authorize(ctx, principal, domain.PermissionAuditRead))
	require.ErrorIs(t, authz.Authorize(ctx, principal, domain.PermissionAccountsDelete), domain.ErrForbidden)
}

func TestPolicyRejectsForbiddenBuiltins(t *testing.T) {
	dir := t.TempDir()
	policy := `package provisiond.admin

import future.keywords.if

default allow := false

allow if {
	resp := http.send({"method": "GET", "url": "http://127.0.0.1/"})
	resp.status_code == 200
}
`
	path := filepath.Join(dir, "admin.rego")
	require.NoError(t, os.WriteFile(path, []byte(policy), 0o600))

	_, err := NewAuthorizer(context.Background(), nil, path)
	require.Error(t, err)
}
