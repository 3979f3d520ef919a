package usecase

import (
	"context"
	"testing"

	"provisiond/internal/domain"

	"github.com/stretchr/testify/require"
)

type capturingAccounts struct {
	*memAccounts
	filter domain.AccountFilter
}

func (c *capturingAccounts) List(ctx context.Context, f domain.AccountFilter) (domain.AccountPage, error) {
	c.filter = f
	return c.memAccounts.List(ctx, f)
}

func TestAdminQueries_DefaultsPaging(t *testing.T) {
	accounts := &capturingAccounts{memAccounts: newMemAccounts()}
	q := &AdminQueries{Accounts: accounts, Audit: &memAudit{}}

	_, err := q.ListAccounts(context.Background(), domain.Principal{Admin: true}, domain.AccountFilter{Page: -2})
	require.NoError(t, err)
	require.Equal(t, 1, accounts.filter.Page)
	require.Equal(t, 20, accounts.filter.PageSize)

	_, err = q.ListAccounts(context.Background(), domain.Principal{Admin: true}, domain.AccountFilter{PageSize: 10_000})
	require.NoError(t, err)
	require.Equal(t, maxPageSize, accounts.filter.PageSize)
}

func TestAdminQueries_Authorizes(t *testing.T) {
	q := &AdminQueries{Accounts: newMemAccounts(), Audit: &memAudit{}, Authorizer: denyAuthorizer{}}
	_, err := q.ListAudit(context.Background(), domain.Principal{}, domain.AuditFilter{})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTotalPages(t *testing.T) {
	require.Equal(t, 0, TotalPages(0, 20))
	require.Equal(t, 1, TotalPages(20, 20))
	require.Equal(t, 2, TotalPages(21, 20))
}
