package directory

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"provisiond/internal/domain"
)

const (
	OpExists      = "exists"
	OpCreate      = "create"
	OpDelete      = "delete"
	OpAddToGroup  = "add_to_group"
	OpUploadPhoto = "upload_photo"
	OpFetchPhoto  = "fetch_photo"
	OpSend        = "send"
)

// MemoryDirectory is an in-process identity provider for local runs and
// tests. Fail makes an operation return an error until cleared.
type MemoryDirectory struct {
	mu         sync.Mutex
	identities map[string]domain.NewIdentity
	members    map[string]map[string]bool
	photos     map[string][]byte
	outbox     []domain.MailMessage
	failures   map[string]error
	log        *slog.Logger
}

func NewMemoryDirectory(logger *slog.Logger) *MemoryDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryDirectory{
		identities: map[string]domain.NewIdentity{},
		members:    map[string]map[string]bool{},
		photos:     map[string][]byte{},
		failures:   map[string]error{},
		log:        logger,
	}
}

func (m *MemoryDirectory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *MemoryDirectory) Exists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpExists]; err != nil {
		return false, err
	}
	_, ok := m.identities[email]
	return ok, nil
}

func (m *MemoryDirectory) Create(_ context.Context, identity domain.NewIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpCreate]; err != nil {
		return err
	}
	if _, ok := m.identities[identity.Email]; ok {
		return domain.ErrIdentityConflict
	}
	m.identities[identity.Email] = identity
	return nil
}

func (m *MemoryDirectory) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpDelete]; err != nil {
		return err
	}
	if _, ok := m.identities[email]; !ok {
		return domain.ErrIdentityNotFound
	}
	delete(m.identities, email)
	delete(m.photos, email)
	for _, members := range m.members {
		delete(members, email)
	}
	return nil
}

func (m *MemoryDirectory) AddToGroup(_ context.Context, email, group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpAddToGroup]; err != nil {
		return err
	}
	if m.members[group] == nil {
		m.members[group] = map[string]bool{}
	}
	m.members[group][email] = true
	return nil
}

func (m *MemoryDirectory) UploadPhoto(_ context.Context, email string, image []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpUploadPhoto]; err != nil {
		return err
	}
	if _, ok := m.identities[email]; !ok {
		return domain.ErrIdentityNotFound
	}
	m.photos[email] = bytes.Clone(image)
	return nil
}

func (m *MemoryDirectory) FetchPhoto(_ context.Context, email string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpFetchPhoto]; err != nil {
		return nil, err
	}
	return bytes.Clone(m.photos[email]), nil
}

func (m *MemoryDirectory) Send(_ context.Context, msg domain.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpSend]; err != nil {
		return err
	}
	m.outbox = append(m.outbox, msg)
	m.log.Info("mail queued in memory directory", slog.String("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}

func (m *MemoryDirectory) Identity(email string) (domain.NewIdentity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.identities[email]
	return id, ok
}

func (m *MemoryDirectory) IsMember(group, email string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[group][email]
}

func (m *MemoryDirectory) Outbox() []domain.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.MailMessage(nil), m.outbox...)
}
