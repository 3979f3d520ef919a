package db

import (
	"context"
	"errors"
	"time"

	"provisiond/internal/domain"

	"gorm.io/gorm"
)

type SecretRepository struct {
	db *gorm.DB
}

func NewSecretRepository(db *gorm.DB) *SecretRepository {
	return &SecretRepository{db: db}
}

func (r *SecretRepository) Get(ctx context.Context, t domain.CommunityType) (*domain.Secret, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SecretModel
	err := r.db.WithContext(ctx).Where("community_type = ?", string(t)).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := secretFromModel(model)
	return &out, nil
}

func (r *SecretRepository) Upsert(ctx context.Context, secret domain.Secret) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	now := secret.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing SecretModel
		err := tx.Where("community_type = ?", string(secret.CommunityType)).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			model := SecretModel{
				ID:            newUUID(),
				CommunityType: string(secret.CommunityType),
				SecretHash:    secret.SecretHash,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
			created = true
			return nil
		case err != nil:
			return err
		}
		return tx.Model(&SecretModel{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{"secret_hash": secret.SecretHash, "updated_at": now}).Error
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *SecretRepository) List(ctx context.Context) ([]domain.Secret, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []SecretModel
	if err := r.db.WithContext(ctx).Order("community_type ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Secret, 0, len(models))
	for _, m := range models {
		out = append(out, secretFromModel(m))
	}
	return out, nil
}

func secretFromModel(m SecretModel) domain.Secret {
	return domain.Secret{
		CommunityType: domain.CommunityType(m.CommunityType),
		SecretHash:    m.SecretHash,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}
