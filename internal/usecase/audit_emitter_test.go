package usecase

import (
	"context"
	"errors"
	"testing"

	"provisiond/internal/domain"
)

type failingAuditRepo struct{}

func (failingAuditRepo) Append(context.Context, domain.AuditEntry) (domain.AuditEntry, error) {
	return domain.AuditEntry{}, errors.New("disk full")
}

func (failingAuditRepo) List(context.Context, domain.AuditFilter) (domain.AuditPage, error) {
	return domain.AuditPage{}, nil
}

func TestAuditEmitter_DefaultsAndTimestamp(t *testing.T) {
	repo := &memAudit{}
	emitter := NewAuditEmitter(repo, fixedClock, nil)

	entry, err := emitter.Emit(context.Background(), domain.AuditEntry{Action: domain.AuditSecretRotated, Actor: "admin"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if entry.Level != domain.AuditLevelInfo {
		t.Fatalf("expected info level, got %s", entry.Level)
	}
	if entry.Details == nil {
		t.Fatal("expected empty details map")
	}
	if !entry.CreatedAt.Equal(fixedClock()) {
		t.Fatalf("unexpected created_at %s", entry.CreatedAt)
	}
}

func TestAuditEmitter_RejectsIncompleteEntries(t *testing.T) {
	emitter := NewAuditEmitter(&memAudit{}, fixedClock, nil)
	if _, err := emitter.Emit(context.Background(), domain.AuditEntry{Actor: "admin"}); err == nil {
		t.Fatal("expected missing action to fail")
	}
	var nilEmitter *AuditEmitter
	if _, err := nilEmitter.Emit(context.Background(), domain.AuditEntry{Action: domain.AuditSecretRotated, Actor: "a"}); err == nil {
		t.Fatal("expected nil emitter to fail")
	}
}

func TestAuditEmitter_RecordSwallowsWriteFailure(t *testing.T) {
	emitter := NewAuditEmitter(failingAuditRepo{}, fixedClock, nil)
	emitter.Record(context.Background(), domain.AuditRegistrationSuccess, domain.AuditLevelInfo, "", "", nil)
}

func TestAuditEmitter_RecordFillsAnonymousActor(t *testing.T) {
	repo := &memAudit{}
	NewAuditEmitter(repo, fixedClock, nil).Record(context.Background(), domain.AuditTokenValidationFailed, domain.AuditLevelWarning, "", "10.0.0.9", nil)
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	got := repo.entries[0]
	if got.Actor != AnonymousActor {
		t.Fatalf("expected anonymous actor, got %q", got.Actor)
	}
	if got.SourceAddress == nil || *got.SourceAddress != "10.0.0.9" {
		t.Fatal("expected source address to be kept")
	}
}
