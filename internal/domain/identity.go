package domain

import (
	"context"
	"errors"
)

var (
	ErrIdentityConflict = errors.New("identity already exists")
	ErrInvalidOrgUnit   = errors.New("invalid organizational unit")
	ErrIdentityNotFound = errors.New("identity not found")
)

type NewIdentity struct {
	Email      string
	GivenName  string
	FamilyName string
	OrgUnit    string
	Password   string
}

// IdentityProvider is the remote directory that owns the real mailbox.
// AddToGroup treats an existing membership as success.
type IdentityProvider interface {
	Exists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, identity NewIdentity) error
	Delete(ctx context.Context, email string) error
	AddToGroup(ctx context.Context, email, group string) error
	UploadPhoto(ctx context.Context, email string, image []byte) error
	FetchPhoto(ctx context.Context, email string) ([]byte, error)
}

type MailMessage struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}
