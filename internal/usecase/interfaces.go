package usecase

import (
	"context"
	"time"

	"provisiond/internal/domain"
)

type Clock func() time.Time

type SecretRepository interface {
	Get(ctx context.Context, communityType domain.CommunityType) (*domain.Secret, error)
	// Upsert replaces the hash for a community type and reports whether the
	// row was newly created.
	Upsert(ctx context.Context, secret domain.Secret) (bool, error)
	List(ctx context.Context) ([]domain.Secret, error)
}

type AccountRepository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Create fails with domain.ErrEmailTaken when the unique index on email
	// rejects the row.
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, id string, profile domain.Profile) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter domain.AccountFilter) (domain.AccountPage, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
	List(ctx context.Context, filter domain.AuditFilter) (domain.AuditPage, error)
}

type Metrics interface {
	ObserveAdmission(tier domain.RateLimitTier, allowed bool)
	ObserveAudit(action domain.AuditAction, level domain.AuditLevel)
	ObserveRegistration(outcome string)
	ObserveProviderCall(operation string, err error)
}

type noopMetrics struct{}

func (noopMetrics) ObserveAdmission(domain.RateLimitTier, bool) {}
func (noopMetrics) ObserveAudit(domain.AuditAction, domain.AuditLevel) {}
func (noopMetrics) ObserveRegistration(string) {}
func (noopMetrics) ObserveProviderCall(string, error) {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
