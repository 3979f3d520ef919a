package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"provisiond/internal/domain"
)

const (
	maxNameLength  = 100
	maxPhoneLength = 20
)

var contactEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type RegisterRequest struct {
	Type          domain.CommunityType
	Secret        string
	Username      string
	FirstName     string
	LastName      string
	Phone         string
	ContactEmail  string
	Avatar        []byte
	Profile       domain.Profile
	SourceAddress string
}

type RegisterResult struct {
	Email               string
	TemporaryCredential string
	Account             domain.Account
	AddedToGroup        bool
	Notified            bool
}

// Orchestrator drives registration as an ordered fold of steps over the
// identity provider and the local registry.
type Orchestrator struct {
	Admission        *AdmissionLimiter
	Secrets          *SecretVerifier
	Allocator        *Allocator
	Accounts         AccountRepository
	Provider         domain.IdentityProvider
	Mailer           domain.Mailer
	Audit            *AuditEmitter
	Clock            Clock
	Random           io.Reader
	CredentialLength int
	Locale           string
	Organization     string
	Logger           *slog.Logger
	Metrics          Metrics
}

// registration is the state threaded through the steps of one run.
type registration struct {
	req        RegisterRequest
	community  domain.Community
	alloc      Allocation
	name       ProviderName
	credential string
	avatar     []byte
	avatarFrom string
	grouped    bool
	notified   bool
	account    domain.Account
}

// Register provisions a new identity. The run is detached from the caller's
// cancellation once admitted, so a client disconnect cannot strand a
// half-created remote identity.
func (o *Orchestrator) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	ctx = context.WithoutCancel(ctx)
	r := &registration{req: req}

	for _, step := range o.steps() {
		res := step.run(ctx, r)
		switch res.Outcome {
		case StepOK:
			continue
		case StepDegraded:
			details := r.baseDetails()
			details["reason"] = res.Reason
			if res.Err != nil {
				details["error"] = res.Err.Error()
			}
			o.logger().Warn("registration step degraded",
				"err", res.Err,
				slog.String("step", step.name),
				slog.String("email", r.alloc.Email))
			o.Audit.Record(ctx, step.degraded, domain.AuditLevelWarning, r.actor(), req.SourceAddress, details)
		case StepFatal:
			if step.silent {
				return RegisterResult{}, res.Err
			}
			o.fail(ctx, r, step.name, res)
			metricsOrNoop(o.Metrics).ObserveRegistration(res.Reason)
			return RegisterResult{}, res.Err
		}
	}

	o.Audit.Record(ctx, domain.AuditRegistrationSuccess, domain.AuditLevelInfo, r.actor(), req.SourceAddress, map[string]any{
		"type":           string(r.community.Type),
		"local_part":     r.alloc.LocalPart,
		"email":          r.alloc.Email,
		"added_to_group": r.grouped,
		"group":          r.community.Group,
		"display_name":   r.name.DisplayName,
		"org_unit":       r.community.OrgUnit,
		"avatar":         r.avatarFrom,
		"notified":       r.notified,
	})
	metricsOrNoop(o.Metrics).ObserveRegistration("success")

	return RegisterResult{
		Email:               r.alloc.Email,
		TemporaryCredential: r.credential,
		Account:             r.account,
		AddedToGroup:        r.grouped,
		Notified:            r.notified,
	}, nil
}

func (o *Orchestrator) fail(ctx context.Context, r *registration, step string, res StepResult) {
	details := r.baseDetails()
	details["reason"] = res.Reason
	details["step"] = step
	if res.Err != nil {
		details["error"] = res.Err.Error()
	}
	for k, v := range res.Details {
		details[k] = v
	}
	level := res.Level
	if level == "" {
		level = domain.AuditLevelError
	}
	if level == domain.AuditLevelError {
		o.logger().Error("registration failed",
			"err", res.Err,
			slog.String("step", step),
			slog.String("reason", res.Reason),
			slog.String("email", r.alloc.Email))
	}
	o.Audit.Record(ctx, domain.AuditRegistrationFailed, level, r.actor(), r.req.SourceAddress, details)
}

func (o *Orchestrator) steps() []registrationStep {
	return []registrationStep{
		{name: "admit", silent: true, run: o.admit},
		{name: "verify_secret", run: o.verifySecret},
		{name: "validate", run: o.validate},
		{name: "allocate", run: o.allocate},
		{name: "remote_lookup", run: o.remoteLookup},
		{name: "remote_create", run: o.remoteCreate},
		{name: "group_placement", degraded: domain.AuditGroupPlacementFailed, run: o.placeInGroup},
		{name: "avatar_sync", degraded: domain.AuditAvatarSyncDegraded, run: o.syncAvatar},
		{name: "persist", run: o.persist},
		{name: "notify", degraded: domain.AuditNotificationFailed, run: o.notify},
	}
}

func (o *Orchestrator) admit(ctx context.Context, r *registration) StepResult {
	if _, err := o.Admission.Check(ctx, domain.TierRegister, r.req.SourceAddress); err != nil {
		return stepRejected("rate_limited", err)
	}
	return stepOK()
}

func (o *Orchestrator) verifySecret(ctx context.Context, r *registration) StepResult {
	community, err := o.Allocator.Communities.Lookup(r.req.Type)
	if err != nil {
		return stepRejected("invalid_community_type", err)
	}
	r.community = community

	valid, reason, err := o.Secrets.match(ctx, r.req.Type, r.req.Secret)
	if err != nil {
		return stepFailed(reason, err)
	}
	if !valid {
		if reason == "missing_secret" {
			reason = "invalid_token"
		}
		return stepRejected(reason, domain.ErrInvalidToken)
	}
	return stepOK()
}

func (o *Orchestrator) validate(_ context.Context, r *registration) StepResult {
	req := &r.req
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	req.Phone = strings.TrimSpace(req.Phone)

	invalid := func(msg string) StepResult {
		return stepRejected("invalid_input", fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg))
	}
	switch {
	case req.FirstName == "":
		return invalid("name is required")
	case len(req.FirstName) > maxNameLength || len(req.LastName) > maxNameLength:
		return invalid("name is too long")
	case r.community.IsPerson() && req.LastName == "":
		return invalid("last name is required")
	case req.ContactEmail == "":
		return invalid("contact email is required")
	case !contactEmailPattern.MatchString(req.ContactEmail):
		return invalid("contact email is not valid")
	case len(req.Phone) > maxPhoneLength:
		return invalid("phone is too long")
	}
	if !r.community.IsPerson() {
		req.Profile.Company = nil
		req.Profile.JobTitle = nil
	}
	return stepOK()
}

func (o *Orchestrator) allocate(ctx context.Context, r *registration) StepResult {
	alloc, err := o.Allocator.Allocate(r.req.Type, r.req.Username, r.req.FirstName, r.req.LastName)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidName):
			return stepRejected("invalid_name", err)
		case errors.Is(err, domain.ErrInvalidFormat):
			return stepRejected("invalid_format", err)
		default:
			return stepRejected("invalid_input", err)
		}
	}
	r.alloc = alloc

	available, err := o.Allocator.IsAvailable(ctx, alloc.Email)
	if err != nil {
		return stepFailed("lookup_failed", err)
	}
	if !available {
		return stepRejected("email_taken", domain.ErrEmailTaken)
	}
	return stepOK()
}

func (o *Orchestrator) remoteLookup(ctx context.Context, r *registration) StepResult {
	exists, err := o.Provider.Exists(ctx, r.alloc.Email)
	metricsOrNoop(o.Metrics).ObserveProviderCall("exists", err)
	if err != nil {
		return stepFailed("provider_lookup_failed", fmt.Errorf("%w: %v", domain.ErrUpstream, err))
	}
	if exists {
		return stepRejected("email_exists_remotely", domain.ErrEmailExistsRemotely)
	}
	return stepOK()
}

func (o *Orchestrator) remoteCreate(ctx context.Context, r *registration) StepResult {
	credential, err := GenerateTemporaryCredential(o.Random, o.CredentialLength)
	if err != nil {
		return stepFailed("provisioning_failed", fmt.Errorf("generate credential: %w", err))
	}
	r.credential = credential
	r.name = FormatProviderName(r.community, r.req.FirstName, r.req.LastName, o.Locale)

	err = o.Provider.Create(ctx, domain.NewIdentity{
		Email:      r.alloc.Email,
		GivenName:  r.name.GivenName,
		FamilyName: r.name.FamilyName,
		OrgUnit:    r.community.OrgUnit,
		Password:   credential,
	})
	metricsOrNoop(o.Metrics).ObserveProviderCall("create", err)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityConflict) {
			return stepRejected("email_exists_remotely", domain.ErrEmailExistsRemotely)
		}
		return stepFailed("provisioning_failed", fmt.Errorf("%w: %v", domain.ErrUpstream, err))
	}
	return stepOK()
}

func (o *Orchestrator) placeInGroup(ctx context.Context, r *registration) StepResult {
	if r.community.Group == "" {
		return stepOK()
	}
	err := o.Provider.AddToGroup(ctx, r.alloc.Email, r.community.Group)
	metricsOrNoop(o.Metrics).ObserveProviderCall("add_to_group", err)
	if err != nil {
		return stepDegraded("group_placement_failed", err)
	}
	r.grouped = true
	return stepOK()
}

// syncAvatar uploads the submitted image and stores the provider's rendition.
// Any failure keeps the submitted bytes.
func (o *Orchestrator) syncAvatar(ctx context.Context, r *registration) StepResult {
	if len(r.req.Avatar) == 0 {
		r.avatarFrom = "none"
		return stepOK()
	}
	r.avatar = r.req.Avatar
	r.avatarFrom = "original"

	err := o.Provider.UploadPhoto(ctx, r.alloc.Email, r.req.Avatar)
	metricsOrNoop(o.Metrics).ObserveProviderCall("upload_photo", err)
	if err != nil {
		return stepDegraded("upload_failed", err)
	}
	photo, err := o.Provider.FetchPhoto(ctx, r.alloc.Email)
	metricsOrNoop(o.Metrics).ObserveProviderCall("fetch_photo", err)
	if err != nil {
		return stepDegraded("fetch_failed", err)
	}
	if len(photo) == 0 {
		return stepDegraded("fetch_empty", nil)
	}
	r.avatar = photo
	r.avatarFrom = "provider"
	return stepOK()
}

func (o *Orchestrator) persist(ctx context.Context, r *registration) StepResult {
	profile := r.req.Profile
	profile.Avatar = r.avatar
	account := domain.Account{
		Email:               r.alloc.Email,
		CommunityType:       r.community.Type,
		LocalPart:           r.alloc.LocalPart,
		PrimaryName:         r.req.FirstName,
		SecondaryName:       stringPtrIfNotEmpty(r.req.LastName),
		Phone:               stringPtrIfNotEmpty(r.req.Phone),
		ContactEmail:        r.req.ContactEmail,
		ProviderDisplayName: r.name.DisplayName,
		CreatedAt:           o.now().UTC(),
		Profile:             profile,
	}
	created, err := o.Accounts.Create(ctx, account)
	if err != nil {
		res := stepFailed("persistence_failed", err)
		if errors.Is(err, domain.ErrEmailTaken) {
			res.Reason = "email_taken"
		}
		res.Details = map[string]any{"orphaned_remote_identity": true}
		return res
	}
	r.account = created
	return stepOK()
}

func (o *Orchestrator) notify(ctx context.Context, r *registration) StepResult {
	if o.Mailer == nil {
		return stepOK()
	}
	msg, err := ConfirmationMessage(r.req.ContactEmail, r.alloc.Email, r.credential, o.Allocator.Domain, o.Organization)
	if err != nil {
		return stepDegraded("render_failed", err)
	}
	if err := o.Mailer.Send(ctx, msg); err != nil {
		return stepDegraded("send_failed", err)
	}
	r.notified = true
	return stepOK()
}

func (r *registration) actor() string {
	if r.req.ContactEmail != "" {
		return r.req.ContactEmail
	}
	return AnonymousActor
}

func (r *registration) baseDetails() map[string]any {
	details := map[string]any{"type": string(r.req.Type)}
	if r.alloc.Email != "" {
		details["email"] = r.alloc.Email
	}
	return details
}

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
