package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"provisiond/internal/domain"

	"gorm.io/gorm"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&AccountModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	if r.db == nil {
		return domain.Account{}, errDBUnavailable
	}
	if account.ID == "" {
		account.ID = newUUID()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	account.CreatedAt = account.CreatedAt.UTC().Truncate(time.Microsecond)
	model := accountModelFromDomain(account)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, fmt.Errorf("%w: %s", domain.ErrEmailTaken, account.Email)
		}
		return domain.Account{}, err
	}
	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if !isUUID(id) {
		return nil, domain.ErrNotFound
	}
	return r.getWhere(ctx, "id = ?", id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getWhere(ctx, "email = ?", email)
}

func (r *AccountRepository) getWhere(ctx context.Context, query string, arg string) (*domain.Account, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AccountModel
	err := r.db.WithContext(ctx).Where(query, arg).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := accountFromModel(model)
	return &out, nil
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, profile domain.Profile) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if !isUUID(id) {
		return domain.ErrNotFound
	}
	res := r.db.WithContext(ctx).Model(&AccountModel{}).Where("id = ?", id).Updates(map[string]any{
		"bio":       profile.Bio,
		"location":  profile.Location,
		"avatar":    copyBytes(profile.Avatar),
		"company":   profile.Company,
		"job_title": profile.JobTitle,
		"linkedin":  profile.Social.LinkedIn,
		"twitter":   profile.Social.Twitter,
		"github":    profile.Social.GitHub,
		"instagram": profile.Social.Instagram,
		"facebook":  profile.Social.Facebook,
		"youtube":   profile.Social.YouTube,
		"website":   profile.Social.Website,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if !isUUID(id) {
		return domain.ErrNotFound
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&AccountModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List pages accounts newest first. Search matches the address or the
// contact email, case-insensitively.
func (r *AccountRepository) List(ctx context.Context, filter domain.AccountFilter) (domain.AccountPage, error) {
	if r.db == nil {
		return domain.AccountPage{}, errDBUnavailable
	}
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.Search != "" {
			pattern := likePattern(filter.Search)
			q = q.Where(`(LOWER(email) LIKE ? ESCAPE '\') OR (LOWER(contact_email) LIKE ? ESCAPE '\')`, pattern, pattern)
		}
		if filter.CommunityType != "" {
			q = q.Where("community_type = ?", string(filter.CommunityType))
		}
		return q
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&AccountModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return domain.AccountPage{}, err
	}
	var models []AccountModel
	if err := r.db.WithContext(ctx).Scopes(scope).
		Omit("avatar").
		Order("created_at DESC").
		Offset(offset(filter.Page, filter.PageSize)).
		Limit(filter.PageSize).
		Find(&models).Error; err != nil {
		return domain.AccountPage{}, err
	}
	out := make([]domain.Account, 0, len(models))
	for _, m := range models {
		out = append(out, accountFromModel(m))
	}
	return domain.AccountPage{
		Accounts:   out,
		Total:      total,
		Page:       filter.Page,
		TotalPages: totalPages(total, filter.PageSize),
	}, nil
}

func accountModelFromDomain(a domain.Account) AccountModel {
	return AccountModel{
		ID:                  a.ID,
		Email:               a.Email,
		CommunityType:       string(a.CommunityType),
		LocalPart:           a.LocalPart,
		PrimaryName:         a.PrimaryName,
		SecondaryName:       a.SecondaryName,
		Phone:               a.Phone,
		ContactEmail:        a.ContactEmail,
		ProviderDisplayName: a.ProviderDisplayName,
		Bio:                 a.Profile.Bio,
		Location:            a.Profile.Location,
		Avatar:              copyBytes(a.Profile.Avatar),
		Company:             a.Profile.Company,
		JobTitle:            a.Profile.JobTitle,
		LinkedIn:            a.Profile.Social.LinkedIn,
		Twitter:             a.Profile.Social.Twitter,
		GitHub:              a.Profile.Social.GitHub,
		Instagram:           a.Profile.Social.Instagram,
		Facebook:            a.Profile.Social.Facebook,
		YouTube:             a.Profile.Social.YouTube,
		Website:             a.Profile.Social.Website,
		CreatedAt:           a.CreatedAt,
	}
}

func accountFromModel(m AccountModel) domain.Account {
	return domain.Account{
		ID:                  m.ID,
		Email:               m.Email,
		CommunityType:       domain.CommunityType(m.CommunityType),
		LocalPart:           m.LocalPart,
		PrimaryName:         m.PrimaryName,
		SecondaryName:       m.SecondaryName,
		Phone:               m.Phone,
		ContactEmail:        m.ContactEmail,
		ProviderDisplayName: m.ProviderDisplayName,
		CreatedAt:           m.CreatedAt.UTC(),
		Profile: domain.Profile{
			Bio:      m.Bio,
			Location: m.Location,
			Avatar:   copyBytes(m.Avatar),
			Company:  m.Company,
			JobTitle: m.JobTitle,
			Social: domain.SocialLinks{
				LinkedIn:  m.LinkedIn,
				Twitter:   m.Twitter,
				GitHub:    m.GitHub,
				Instagram: m.Instagram,
				Facebook:  m.Facebook,
				YouTube:   m.YouTube,
				Website:   m.Website,
			},
		},
	}
}
