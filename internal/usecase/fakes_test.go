package usecase

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"provisiond/internal/domain"
)

type memSecrets struct {
	mu   sync.Mutex
	rows map[domain.CommunityType]domain.Secret
	err  error
}

func newMemSecrets() *memSecrets {
	return &memSecrets{rows: map[domain.CommunityType]domain.Secret{}}
}

func (m *memSecrets) Get(_ context.Context, t domain.CommunityType) (*domain.Secret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.rows[t]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *memSecrets) Upsert(_ context.Context, s domain.Secret) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.rows[s.CommunityType]
	if ok {
		s.CreatedAt = prev.CreatedAt
	}
	m.rows[s.CommunityType] = s
	return !ok, nil
}

func (m *memSecrets) List(context.Context) ([]domain.Secret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Secret, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, s)
	}
	return out, nil
}

type memAccounts struct {
	mu        sync.Mutex
	rows      map[string]domain.Account
	seq       int
	createErr error
}

func newMemAccounts() *memAccounts {
	return &memAccounts{rows: map[string]domain.Account{}}
}

func (m *memAccounts) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAccounts) Create(_ context.Context, a domain.Account) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return domain.Account{}, m.createErr
	}
	for _, existing := range m.rows {
		if existing.Email == a.Email {
			return domain.Account{}, domain.ErrEmailTaken
		}
	}
	m.seq++
	a.ID = fmt.Sprintf("acct-%d", m.seq)
	m.rows[a.ID] = a
	return a, nil
}

func (m *memAccounts) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAccounts) UpdateProfile(_ context.Context, id string, p domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Profile = p
	m.rows[id] = a
	return nil
}

func (m *memAccounts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memAccounts) List(_ context.Context, f domain.AccountFilter) (domain.AccountPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Account
	for _, a := range m.rows {
		if f.CommunityType != "" && a.CommunityType != f.CommunityType {
			continue
		}
		if f.Search != "" && !strings.Contains(a.Email, f.Search) {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return domain.AccountPage{Accounts: all, Total: int64(len(all)), Page: f.Page, TotalPages: TotalPages(int64(len(all)), f.PageSize)}, nil
}

func (m *memAccounts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (m *memAudit) Append(_ context.Context, e domain.AuditEntry) (domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = fmt.Sprintf("audit-%d", len(m.entries)+1)
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *memAudit) List(_ context.Context, f domain.AuditFilter) (domain.AuditPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range m.entries {
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		out = append(out, e)
	}
	return domain.AuditPage{Entries: out, Total: int64(len(out)), Page: f.Page}, nil
}

func (m *memAudit) actions() []domain.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

func (m *memAudit) last(action domain.AuditAction) (domain.AuditEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].Action == action {
			return m.entries[i], true
		}
	}
	return domain.AuditEntry{}, false
}

// fakeProvider is an in-memory directory with per-operation failure hooks.
type fakeProvider struct {
	mu         sync.Mutex
	identities map[string]domain.NewIdentity
	groups     map[string][]string
	photos     map[string][]byte

	existsErr error
	createErr error
	groupErr  error
	uploadErr error
	fetchErr  error
	deleteErr error
	// rendition replaces uploaded photos to mimic provider re-encoding.
	rendition []byte
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		identities: map[string]domain.NewIdentity{},
		groups:     map[string][]string{},
		photos:     map[string][]byte{},
	}
}

func (p *fakeProvider) Exists(_ context.Context, email string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.existsErr != nil {
		return false, p.existsErr
	}
	_, ok := p.identities[email]
	return ok, nil
}

func (p *fakeProvider) Create(_ context.Context, id domain.NewIdentity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return p.createErr
	}
	if _, ok := p.identities[id.Email]; ok {
		return domain.ErrIdentityConflict
	}
	p.identities[id.Email] = id
	return nil
}

func (p *fakeProvider) Delete(_ context.Context, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleteErr != nil {
		return p.deleteErr
	}
	if _, ok := p.identities[email]; !ok {
		return domain.ErrIdentityNotFound
	}
	delete(p.identities, email)
	return nil
}

func (p *fakeProvider) AddToGroup(_ context.Context, email, group string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.groupErr != nil {
		return p.groupErr
	}
	p.groups[group] = append(p.groups[group], email)
	return nil
}

func (p *fakeProvider) UploadPhoto(_ context.Context, email string, image []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.uploadErr != nil {
		return p.uploadErr
	}
	if p.rendition != nil {
		image = p.rendition
	}
	p.photos[email] = bytes.Clone(image)
	return nil
}

func (p *fakeProvider) FetchPhoto(_ context.Context, email string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return bytes.Clone(p.photos[email]), nil
}

func (p *fakeProvider) has(email string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.identities[email]
	return ok
}

type recordingMailer struct {
	sent []domain.MailMessage
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg domain.MailMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type stubLimiter struct {
	allow int
	calls int
	err   error
}

func (s *stubLimiter) Allow(_ context.Context, _ string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if s.err != nil {
		return domain.RateLimitDecision{}, s.err
	}
	s.calls++
	if s.calls > s.allow {
		return domain.RateLimitDecision{Allowed: false, Limit: limit, ResetAt: time.Unix(0, 0).Add(window)}, nil
	}
	return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: s.allow - s.calls}, nil
}

type denyAuthorizer struct{}

func (denyAuthorizer) Authorize(context.Context, domain.Principal, string) error {
	return domain.ErrForbidden
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}
