package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"provisiond/internal/domain"
)

type Deprovisioner struct {
	Accounts   AccountRepository
	Provider   domain.IdentityProvider
	Authorizer domain.Authorizer
	Audit      *AuditEmitter
	Logger     *slog.Logger
	Metrics    Metrics
}

type DeprovisionRequest struct {
	// Identifier is an account id or its email address.
	Identifier    string
	Principal     domain.Principal
	SourceAddress string
}

type DeprovisionResult struct {
	Account      domain.Account
	RemoteAbsent bool
}

// Deprovision removes the remote identity, then the local row. A remote
// failure keeps the row so the call can be retried; a second call after
// success reports domain.ErrNotFound.
func (d *Deprovisioner) Deprovision(ctx context.Context, req DeprovisionRequest) (DeprovisionResult, error) {
	if d.Authorizer != nil {
		if err := d.Authorizer.Authorize(ctx, req.Principal, domain.PermissionAccountsDelete); err != nil {
			return DeprovisionResult{}, err
		}
	}
	account, err := d.lookup(ctx, strings.TrimSpace(req.Identifier))
	if err != nil {
		return DeprovisionResult{}, err
	}
	actor := req.Principal.Email
	if actor == "" {
		actor = req.Principal.Subject
	}

	remoteAbsent := false
	err = d.Provider.Delete(ctx, account.Email)
	metricsOrNoop(d.Metrics).ObserveProviderCall("delete", err)
	if err != nil {
		if !errors.Is(err, domain.ErrIdentityNotFound) {
			d.logger().Error("remote delete failed", "err", err, slog.String("email", account.Email))
			d.Audit.Record(ctx, domain.AuditAccountDeleteFailed, domain.AuditLevelError, actor, req.SourceAddress, map[string]any{
				"account_id": account.ID,
				"email":      account.Email,
				"error":      err.Error(),
			})
			return DeprovisionResult{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
		remoteAbsent = true
	}

	if err := d.Accounts.Delete(ctx, account.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return DeprovisionResult{}, fmt.Errorf("delete account: %w", err)
	}

	details := accountSnapshot(*account)
	details["remote_absent"] = remoteAbsent
	d.Audit.Record(ctx, domain.AuditAccountDeleted, domain.AuditLevelInfo, actor, req.SourceAddress, details)
	return DeprovisionResult{Account: *account, RemoteAbsent: remoteAbsent}, nil
}

func (d *Deprovisioner) lookup(ctx context.Context, identifier string) (*domain.Account, error) {
	if identifier == "" {
		return nil, fmt.Errorf("%w: account identifier is required", domain.ErrInvalidInput)
	}
	var (
		account *domain.Account
		err     error
	)
	if strings.Contains(identifier, "@") {
		account, err = d.Accounts.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		account, err = d.Accounts.GetByID(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

func (d *Deprovisioner) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// accountSnapshot keeps deleted records reconstructable from the audit log.
// The avatar is left out.
func accountSnapshot(a domain.Account) map[string]any {
	out := map[string]any{
		"account_id":     a.ID,
		"email":          a.Email,
		"type":           string(a.CommunityType),
		"local_part":     a.LocalPart,
		"primary_name":   a.PrimaryName,
		"contact_email":  a.ContactEmail,
		"display_name":   a.ProviderDisplayName,
		"created_at":     a.CreatedAt.UTC(),
		"avatar_present": len(a.Profile.Avatar) > 0,
	}
	optional := map[string]*string{
		"secondary_name": a.SecondaryName,
		"phone":          a.Phone,
		"bio":            a.Profile.Bio,
		"location":       a.Profile.Location,
		"company":        a.Profile.Company,
		"job_title":      a.Profile.JobTitle,
		"linkedin":       a.Profile.Social.LinkedIn,
		"twitter":        a.Profile.Social.Twitter,
		"github":         a.Profile.Social.GitHub,
		"instagram":      a.Profile.Social.Instagram,
		"facebook":       a.Profile.Social.Facebook,
		"youtube":        a.Profile.Social.YouTube,
		"website":        a.Profile.Social.Website,
	}
	for k, v := range optional {
		if v != nil {
			out[k] = *v
		}
	}
	return out
}
