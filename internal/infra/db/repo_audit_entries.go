package db

import (
	"context"
	"errors"
	"time"

	"provisiond/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditEntryRepository only appends and reads; the model hooks refuse
// updates and deletes issued through gorm.
type AuditEntryRepository struct {
	db *gorm.DB
}

func NewAuditEntryRepository(db *gorm.DB) *AuditEntryRepository {
	return &AuditEntryRepository{db: db}
}

func (r *AuditEntryRepository) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if r.db == nil {
		return domain.AuditEntry{}, errDBUnavailable
	}
	if entry.Action == "" {
		return domain.AuditEntry{}, errors.New("action is required")
	}
	if entry.ID == "" {
		entry.ID = newUUID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.CreatedAt = entry.CreatedAt.UTC().Truncate(time.Microsecond)
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}
	model := AuditEntryModel{
		ID:            entry.ID,
		Action:        string(entry.Action),
		Level:         string(entry.Level),
		Actor:         entry.Actor,
		Details:       datatypes.JSONMap(entry.Details),
		SourceAddress: entry.SourceAddress,
		CreatedAt:     entry.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AuditEntry{}, err
	}
	return entry, nil
}

// List pages entries newest first and reports every action present in the
// log so callers can offer a filter.
func (r *AuditEntryRepository) List(ctx context.Context, filter domain.AuditFilter) (domain.AuditPage, error) {
	if r.db == nil {
		return domain.AuditPage{}, errDBUnavailable
	}
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.ActorSearch != "" {
			q = q.Where(`LOWER(actor) LIKE ? ESCAPE '\'`, likePattern(filter.ActorSearch))
		}
		if filter.Action != "" {
			q = q.Where("action = ?", string(filter.Action))
		}
		return q
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&AuditEntryModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return domain.AuditPage{}, err
	}
	var models []AuditEntryModel
	if err := r.db.WithContext(ctx).Scopes(scope).
		Order("created_at DESC").
		Offset(offset(filter.Page, filter.PageSize)).
		Limit(filter.PageSize).
		Find(&models).Error; err != nil {
		return domain.AuditPage{}, err
	}
	var actions []string
	if err := r.db.WithContext(ctx).Model(&AuditEntryModel{}).
		Distinct("action").
		Order("action ASC").
		Pluck("action", &actions).Error; err != nil {
		return domain.AuditPage{}, err
	}

	entries := make([]domain.AuditEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, auditEntryFromModel(m))
	}
	distinct := make([]domain.AuditAction, 0, len(actions))
	for _, a := range actions {
		distinct = append(distinct, domain.AuditAction(a))
	}
	return domain.AuditPage{
		Entries:    entries,
		Total:      total,
		Page:       filter.Page,
		TotalPages: totalPages(total, filter.PageSize),
		Actions:    distinct,
	}, nil
}

func auditEntryFromModel(m AuditEntryModel) domain.AuditEntry {
	details := map[string]any(m.Details)
	if details == nil {
		details = map[string]any{}
	}
	return domain.AuditEntry{
		ID:            m.ID,
		Action:        domain.AuditAction(m.Action),
		Level:         domain.AuditLevel(m.Level),
		Actor:         m.Actor,
		Details:       details,
		SourceAddress: m.SourceAddress,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}
