package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"provisiond/internal/domain"
)

type ProfileService struct {
	Accounts AccountRepository
	Provider domain.IdentityProvider
	Audit    *AuditEmitter
	Logger   *slog.Logger
	Metrics  Metrics
}

func (s *ProfileService) Get(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.Accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

// Update applies a partial profile change to the account owning email.
// Company and job title only apply to person communities.
func (s *ProfileService) Update(ctx context.Context, email string, patch domain.ProfilePatch, communities domain.Communities, sourceAddress string) (*domain.Account, error) {
	account, err := s.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	community, err := communities.Lookup(account.CommunityType)
	if err != nil {
		return nil, err
	}
	if !community.IsPerson() {
		patch.Company = domain.Optional[string]{}
		patch.JobTitle = domain.Optional[string]{}
	}

	profile := patch.Apply(account.Profile)
	avatarFrom := ""
	if patch.Avatar.Set {
		avatarFrom = "cleared"
		profile.Avatar = nil
		if !patch.Avatar.Null && patch.Avatar.Value != "" {
			raw, err := DecodeImage(patch.Avatar.Value)
			if err != nil {
				return nil, err
			}
			profile.Avatar, avatarFrom = s.syncAvatar(ctx, account.Email, raw, sourceAddress)
		}
	}

	if err := s.Accounts.UpdateProfile(ctx, account.ID, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	account.Profile = profile

	details := map[string]any{
		"account_id": account.ID,
		"email":      account.Email,
		"fields":     patchedFields(patch),
	}
	if avatarFrom != "" {
		details["avatar"] = avatarFrom
	}
	s.Audit.Record(ctx, domain.AuditProfileUpdated, domain.AuditLevelInfo, account.Email, sourceAddress, details)
	return account, nil
}

func (s *ProfileService) syncAvatar(ctx context.Context, email string, raw []byte, sourceAddress string) ([]byte, string) {
	if s.Provider == nil {
		return raw, "original"
	}
	degrade := func(reason string, err error) ([]byte, string) {
		s.logger().Warn("avatar sync degraded", "err", err, slog.String("email", email))
		details := map[string]any{"email": email, "reason": reason}
		if err != nil {
			details["error"] = err.Error()
		}
		s.Audit.Record(ctx, domain.AuditAvatarSyncDegraded, domain.AuditLevelWarning, email, sourceAddress, details)
		return raw, "original"
	}
	err := s.Provider.UploadPhoto(ctx, email, raw)
	metricsOrNoop(s.Metrics).ObserveProviderCall("upload_photo", err)
	if err != nil {
		return degrade("upload_failed", err)
	}
	photo, err := s.Provider.FetchPhoto(ctx, email)
	metricsOrNoop(s.Metrics).ObserveProviderCall("fetch_photo", err)
	if err != nil {
		return degrade("fetch_failed", err)
	}
	if len(photo) == 0 {
		return degrade("fetch_empty", nil)
	}
	return photo, "provider"
}

func (s *ProfileService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func patchedFields(p domain.ProfilePatch) []string {
	set := map[string]bool{
		"bio":           p.Bio.Set,
		"location":      p.Location.Set,
		"company":       p.Company.Set,
		"job_title":     p.JobTitle.Set,
		"profile_image": p.Avatar.Set,
		"linkedin":      p.LinkedIn.Set,
		"twitter":       p.Twitter.Set,
		"github":        p.GitHub.Set,
		"instagram":     p.Instagram.Set,
		"facebook":      p.Facebook.Set,
		"youtube":       p.YouTube.Set,
		"website":       p.Website.Set,
	}
	fields := make([]string, 0, len(set))
	for name, ok := range set {
		if ok {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}
