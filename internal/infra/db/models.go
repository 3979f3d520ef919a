package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SecretModel struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	CommunityType string    `gorm:"uniqueIndex;not null"`
	SecretHash    string    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (SecretModel) TableName() string { return "secrets" }

type AccountModel struct {
	ID                  string    `gorm:"type:uuid;primaryKey"`
	Email               string    `gorm:"uniqueIndex;not null"`
	CommunityType       string    `gorm:"index;not null"`
	LocalPart           string    `gorm:"not null"`
	PrimaryName         string    `gorm:"not null"`
	SecondaryName       *string
	Phone               *string
	ContactEmail        string `gorm:"not null"`
	ProviderDisplayName string `gorm:"not null"`
	Bio                 *string
	Location            *string
	Avatar              []byte `gorm:"type:bytea"`
	Company             *string
	JobTitle            *string
	LinkedIn            *string `gorm:"column:linkedin"`
	Twitter             *string
	GitHub              *string `gorm:"column:github"`
	Instagram           *string
	Facebook            *string
	YouTube             *string `gorm:"column:youtube"`
	Website             *string
	CreatedAt           time.Time `gorm:"index;not null"`
}

func (AccountModel) TableName() string { return "accounts" }

type AuditEntryModel struct {
	ID            string            `gorm:"type:uuid;primaryKey"`
	Action        string            `gorm:"index;not null"`
	Level         string            `gorm:"not null"`
	Actor         string            `gorm:"index;not null"`
	Details       datatypes.JSONMap `gorm:"not null"`
	SourceAddress *string
	CreatedAt     time.Time `gorm:"index;not null"`
}

func (AuditEntryModel) TableName() string { return "audit_entries" }

func (AuditEntryModel) BeforeUpdate(*gorm.DB) error { return errAppendOnly }

func (AuditEntryModel) BeforeDelete(*gorm.DB) error { return errAppendOnly }
