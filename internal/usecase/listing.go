package usecase

import (
	"context"

	"provisiond/internal/domain"
)

const (
	defaultAccountPageSize = 20
	defaultAuditPageSize   = 50
	maxPageSize            = 200
)

type AdminQueries struct {
	Accounts   AccountRepository
	Audit      AuditRepository
	Authorizer domain.Authorizer
}

func (q *AdminQueries) ListAccounts(ctx context.Context, principal domain.Principal, filter domain.AccountFilter) (domain.AccountPage, error) {
	if err := q.authorize(ctx, principal, domain.PermissionAccountsRead); err != nil {
		return domain.AccountPage{}, err
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize, defaultAccountPageSize)
	return q.Accounts.List(ctx, filter)
}

func (q *AdminQueries) ListAudit(ctx context.Context, principal domain.Principal, filter domain.AuditFilter) (domain.AuditPage, error) {
	if err := q.authorize(ctx, principal, domain.PermissionAuditRead); err != nil {
		return domain.AuditPage{}, err
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize, defaultAuditPageSize)
	return q.Audit.List(ctx, filter)
}

func (q *AdminQueries) authorize(ctx context.Context, principal domain.Principal, action string) error {
	if q.Authorizer == nil {
		return nil
	}
	return q.Authorizer.Authorize(ctx, principal, action)
}

func normalizePage(page, size, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = def
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// TotalPages is shared by repository implementations.
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
