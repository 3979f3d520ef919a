package usecase

import (
	"context"

	"provisiond/internal/domain"
)

type StepOutcome int

const (
	StepOK StepOutcome = iota
	StepDegraded
	StepFatal
)

func (o StepOutcome) String() string {
	switch o {
	case StepOK:
		return "ok"
	case StepDegraded:
		return "degraded"
	case StepFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// StepResult is what one provisioning step reports back to the fold.
// Degraded steps never stop the run; a fatal step ends it.
type StepResult struct {
	Outcome StepOutcome
	Reason  string
	Level   domain.AuditLevel
	Err     error
	Details map[string]any
}

func stepOK() StepResult { return StepResult{Outcome: StepOK} }

func stepDegraded(reason string, err error) StepResult {
	return StepResult{Outcome: StepDegraded, Reason: reason, Level: domain.AuditLevelWarning, Err: err}
}

func stepRejected(reason string, err error) StepResult {
	return StepResult{Outcome: StepFatal, Reason: reason, Level: domain.AuditLevelWarning, Err: err}
}

func stepFailed(reason string, err error) StepResult {
	return StepResult{Outcome: StepFatal, Reason: reason, Level: domain.AuditLevelError, Err: err}
}

type registrationStep struct {
	name string
	// degraded is the warning entry written when the step degrades.
	degraded domain.AuditAction
	// silent steps end the run without a registration_failed entry.
	silent bool
	run    func(ctx context.Context, r *registration) StepResult
}
