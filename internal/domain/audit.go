package domain

import "time"

type AuditAction string

const (
	AuditTokenValidationSuccess AuditAction = "token_validation_success"
	AuditTokenValidationFailed  AuditAction = "token_validation_failed"
	AuditSecretRotated          AuditAction = "secret_rotated"
	AuditRegistrationSuccess    AuditAction = "registration_success"
	AuditRegistrationFailed     AuditAction = "registration_failed"
	AuditGroupPlacementFailed   AuditAction = "group_placement_failed"
	AuditAvatarSyncDegraded     AuditAction = "avatar_sync_degraded"
	AuditNotificationFailed     AuditAction = "notification_failed"
	AuditProfileUpdated         AuditAction = "profile_updated"
	AuditAccountDeleted         AuditAction = "account_deleted"
	AuditAccountDeleteFailed    AuditAction = "account_delete_failed"
)

func AuditActions() []AuditAction {
	return []AuditAction{
		AuditTokenValidationSuccess,
		AuditTokenValidationFailed,
		AuditSecretRotated,
		AuditRegistrationSuccess,
		AuditRegistrationFailed,
		AuditGroupPlacementFailed,
		AuditAvatarSyncDegraded,
		AuditNotificationFailed,
		AuditProfileUpdated,
		AuditAccountDeleted,
		AuditAccountDeleteFailed,
	}
}

type AuditLevel string

const (
	AuditLevelInfo    AuditLevel = "info"
	AuditLevelWarning AuditLevel = "warning"
	AuditLevelError   AuditLevel = "error"
)

// AuditEntry is an immutable record of one security-relevant step. Accounts
// and secrets are referenced by value so history survives deletion.
type AuditEntry struct {
	ID            string
	Action        AuditAction
	Level         AuditLevel
	Actor         string
	Details       map[string]any
	SourceAddress *string
	CreatedAt     time.Time
}

type AuditFilter struct {
	ActorSearch string
	Action      AuditAction
	Page        int
	PageSize    int
}

type AuditPage struct {
	Entries    []AuditEntry
	Total      int64
	Page       int
	TotalPages int
	Actions    []AuditAction
}
