package usecase

import (
	"context"
	"errors"
	"testing"

	"provisiond/internal/domain"

	"github.com/stretchr/testify/require"
)

func seededDeprovisioner(t *testing.T) (*Deprovisioner, *registrationHarness, RegisterResult) {
	t.Helper()
	h := newRegistrationHarness(t)
	res, err := h.orch.Register(context.Background(), h.heroRequest())
	require.NoError(t, err)
	h.audit.entries = nil
	return &Deprovisioner{Accounts: h.accounts, Provider: h.provider, Audit: h.orch.Audit}, h, res
}

func TestDeprovision_RemovesBothSides(t *testing.T) {
	d, h, res := seededDeprovisioner(t)
	admin := domain.Principal{Email: "admin@awscommunity.mx", Admin: true}

	out, err := d.Deprovision(context.Background(), DeprovisionRequest{Identifier: res.Account.ID, Principal: admin})
	require.NoError(t, err)
	require.False(t, out.RemoteAbsent)
	require.False(t, h.provider.has(res.Email))
	require.Zero(t, h.accounts.count())

	entry, found := h.audit.last(domain.AuditAccountDeleted)
	require.True(t, found)
	require.Equal(t, "admin@awscommunity.mx", entry.Actor)
	require.Equal(t, res.Email, entry.Details["email"])
	require.Equal(t, "Victoria", entry.Details["secondary_name"])
	require.NotContains(t, entry.Details, "avatar")
}

func TestDeprovision_RemoteAlreadyAbsentIsIdempotent(t *testing.T) {
	d, h, res := seededDeprovisioner(t)
	delete(h.provider.identities, res.Email)
	admin := domain.Principal{Email: "admin@awscommunity.mx", Admin: true}

	out, err := d.Deprovision(context.Background(), DeprovisionRequest{Identifier: res.Email, Principal: admin})
	require.NoError(t, err)
	require.True(t, out.RemoteAbsent)
	require.Zero(t, h.accounts.count())

	_, err = d.Deprovision(context.Background(), DeprovisionRequest{Identifier: res.Email, Principal: admin})
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Zero(t, h.accounts.count())
	require.Equal(t, []domain.AuditAction{domain.AuditAccountDeleted}, h.audit.actions())
}

func TestDeprovision_UpstreamFailureKeepsRow(t *testing.T) {
	d, h, res := seededDeprovisioner(t)
	h.provider.deleteErr = errors.New("googleapi: Error 500")

	_, err := d.Deprovision(context.Background(), DeprovisionRequest{Identifier: res.Account.ID, Principal: domain.Principal{Email: "admin@awscommunity.mx"}})
	require.ErrorIs(t, err, domain.ErrUpstream)
	require.Equal(t, 1, h.accounts.count())
	require.Equal(t, []domain.AuditAction{domain.AuditAccountDeleteFailed}, h.audit.actions())
}

func TestDeprovision_Unauthorized(t *testing.T) {
	d, h, res := seededDeprovisioner(t)
	d.Authorizer = denyAuthorizer{}

	_, err := d.Deprovision(context.Background(), DeprovisionRequest{Identifier: res.Account.ID})
	require.ErrorIs(t, err, domain.ErrForbidden)
	require.Equal(t, 1, h.accounts.count())
	require.True(t, h.provider.has(res.Email))
}

func TestDeprovision_UnknownAccount(t *testing.T) {
	d, _, _ := seededDeprovisioner(t)
	_, err := d.Deprovision(context.Background(), DeprovisionRequest{Identifier: "missing"})
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = d.Deprovision(context.Background(), DeprovisionRequest{Identifier: " "})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
