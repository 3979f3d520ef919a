package db

import (
	"context"
	"fmt"
	"log/slog"

	"provisiond/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Store struct {
	DB *gorm.DB
}

// NewStore connects to Postgres. Without a DSN the store starts empty and
// every repository reports errDBUnavailable.
func NewStore(cfg config.Config, logger *slog.Logger) (*Store, error) {
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set; starting without persistence")
		return &Store{DB: nil}, nil
	}
	return Open(postgres.Open(cfg.PostgresDSN))
}

func Open(dialector gorm.Dialector) (*Store, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Store{DB: gdb}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errDBUnavailable
	}
	if err := s.DB.WithContext(ctx).AutoMigrate(&SecretModel{}, &AccountModel{}, &AuditEntryModel{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errDBUnavailable
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Secrets() *SecretRepository {
	return NewSecretRepository(s.DB)
}

func (s *Store) Accounts() *AccountRepository {
	return NewAccountRepository(s.DB)
}

func (s *Store) AuditEntries() *AuditEntryRepository {
	return NewAuditEntryRepository(s.DB)
}
