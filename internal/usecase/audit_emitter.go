package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"provisiond/internal/domain"
)

type AuditEmitter struct {
	Repo    AuditRepository
	Clock   Clock
	Logger  *slog.Logger
	Metrics Metrics
}

func NewAuditEmitter(repo AuditRepository, clock Clock, logger *slog.Logger) *AuditEmitter {
	return &AuditEmitter{
		Repo:   repo,
		Clock:  clock,
		Logger: logger,
	}
}

func (e *AuditEmitter) Emit(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if e == nil || e.Repo == nil {
		return domain.AuditEntry{}, errors.New("audit repository required")
	}
	if entry.Action == "" || entry.Actor == "" {
		return domain.AuditEntry{}, errors.New("audit entry missing required fields")
	}
	if entry.Level == "" {
		entry.Level = domain.AuditLevelInfo
	}
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = e.now().UTC()
	} else {
		entry.CreatedAt = entry.CreatedAt.UTC()
	}
	out, err := e.Repo.Append(ctx, entry)
	if err != nil {
		return domain.AuditEntry{}, err
	}
	metricsOrNoop(e.Metrics).ObserveAudit(out.Action, out.Level)
	return out, nil
}

// Record appends an entry and logs, rather than returns, a failed write so an
// audit outage never changes the outcome of the audited operation.
func (e *AuditEmitter) Record(ctx context.Context, action domain.AuditAction, level domain.AuditLevel, actor, sourceAddress string, details map[string]any) {
	if actor == "" {
		actor = AnonymousActor
	}
	entry := domain.AuditEntry{
		Action:        action,
		Level:         level,
		Actor:         actor,
		Details:       details,
		SourceAddress: stringPtrIfNotEmpty(sourceAddress),
	}
	if _, err := e.Emit(ctx, entry); err != nil {
		e.logger().Error("audit write failed",
			"err", err,
			slog.String("action", string(action)),
			slog.String("actor", actor),
			slog.Any("details", details))
	}
}

func (e *AuditEmitter) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

func (e *AuditEmitter) logger() *slog.Logger {
	if e != nil && e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// AnonymousActor stands in when a request carries no identity at all.
const AnonymousActor = "anonymous"

func stringPtrIfNotEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
