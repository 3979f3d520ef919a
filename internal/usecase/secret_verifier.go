package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"provisiond/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

const secretBytes = 16

type SecretVerifier struct {
	Secrets     SecretRepository
	Audit       *AuditEmitter
	Communities domain.Communities
	HashCost    int
	Clock       Clock
	Random      io.Reader
	// Authorizer gates Rotate. Nil leaves it to the caller.
	Authorizer domain.Authorizer
}

type VerifySecretRequest struct {
	Type          domain.CommunityType
	Secret        string
	Actor         string
	SourceAddress string
}

type RotateSecretRequest struct {
	Type          domain.CommunityType
	Principal     domain.Principal
	Actor         string
	SourceAddress string
}

func NewSecretVerifier(secrets SecretRepository, audit *AuditEmitter, communities domain.Communities, hashCost int) *SecretVerifier {
	return &SecretVerifier{
		Secrets:     secrets,
		Audit:       audit,
		Communities: communities,
		HashCost:    hashCost,
	}
}

// Verify checks a candidate secret against the stored hash and records
// exactly one audit entry for the attempt.
func (v *SecretVerifier) Verify(ctx context.Context, req VerifySecretRequest) (bool, error) {
	details := map[string]any{"type": string(req.Type)}
	if _, err := v.Communities.Lookup(req.Type); err != nil {
		details["reason"] = "invalid_type"
		v.Audit.Record(ctx, domain.AuditTokenValidationFailed, domain.AuditLevelWarning, req.Actor, req.SourceAddress, details)
		return false, err
	}

	valid, reason, err := v.match(ctx, req.Type, req.Secret)
	if err != nil {
		details["reason"] = reason
		details["error"] = err.Error()
		v.Audit.Record(ctx, domain.AuditTokenValidationFailed, domain.AuditLevelError, req.Actor, req.SourceAddress, details)
		return false, err
	}
	if !valid {
		details["reason"] = reason
		v.Audit.Record(ctx, domain.AuditTokenValidationFailed, domain.AuditLevelWarning, req.Actor, req.SourceAddress, details)
		return false, nil
	}
	v.Audit.Record(ctx, domain.AuditTokenValidationSuccess, domain.AuditLevelInfo, req.Actor, req.SourceAddress, details)
	return true, nil
}

// match compares without auditing; callers own the audit entry. A missing
// hash fails closed.
func (v *SecretVerifier) match(ctx context.Context, t domain.CommunityType, candidate string) (bool, string, error) {
	if candidate == "" {
		return false, "missing_secret", nil
	}
	if v.Secrets == nil {
		return false, "not_configured", nil
	}
	stored, err := v.Secrets.Get(ctx, t)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, "not_configured", nil
		}
		return false, "lookup_failed", fmt.Errorf("load secret: %w", err)
	}
	if stored == nil || stored.SecretHash == "" {
		return false, "not_configured", nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.SecretHash), []byte(candidate)); err != nil {
		return false, "invalid_token", nil
	}
	return true, "", nil
}

// Rotate replaces the secret of a community type. The plaintext is returned
// once and only its hash is stored; the previous secret stops matching
// immediately.
func (v *SecretVerifier) Rotate(ctx context.Context, req RotateSecretRequest) (string, error) {
	if v.Authorizer != nil {
		if err := v.Authorizer.Authorize(ctx, req.Principal, domain.PermissionSecretsRotate); err != nil {
			return "", err
		}
	}
	if _, err := v.Communities.Lookup(req.Type); err != nil {
		return "", err
	}
	if v.Secrets == nil {
		return "", errors.New("secret repository required")
	}
	raw := make([]byte, secretBytes)
	if _, err := io.ReadFull(v.random(), raw); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	plaintext := hex.EncodeToString(raw)

	cost := v.HashCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	now := v.now().UTC()
	created, err := v.Secrets.Upsert(ctx, domain.Secret{
		CommunityType: req.Type,
		SecretHash:    string(hash),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return "", fmt.Errorf("store secret: %w", err)
	}
	v.Audit.Record(ctx, domain.AuditSecretRotated, domain.AuditLevelInfo, req.Actor, req.SourceAddress, map[string]any{
		"type":                  string(req.Type),
		"previously_configured": !created,
	})
	return plaintext, nil
}

// Status lists every community type with whether a secret is configured.
func (v *SecretVerifier) Status(ctx context.Context) ([]domain.SecretStatus, error) {
	var stored []domain.Secret
	if v.Secrets != nil {
		var err error
		stored, err = v.Secrets.List(ctx)
		if err != nil {
			return nil, err
		}
	}
	byType := make(map[domain.CommunityType]domain.Secret, len(stored))
	for _, s := range stored {
		byType[s.CommunityType] = s
	}
	out := make([]domain.SecretStatus, 0, len(v.Communities))
	for _, c := range v.Communities {
		status := domain.SecretStatus{CommunityType: c.Type, Label: c.Label}
		if s, ok := byType[c.Type]; ok {
			updated := s.UpdatedAt
			status.Configured = true
			status.UpdatedAt = &updated
		}
		out = append(out, status)
	}
	return out, nil
}

func (v *SecretVerifier) now() time.Time {
	if v.Clock != nil {
		return v.Clock()
	}
	return time.Now()
}

func (v *SecretVerifier) random() io.Reader {
	if v.Random != nil {
		return v.Random
	}
	return rand.Reader
}
