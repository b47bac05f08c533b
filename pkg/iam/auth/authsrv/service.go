package authsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/relay/pkg/asyncx"
	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/iam/auth"
	"github.com/Abraxas-365/relay/pkg/iam/company"
	"github.com/Abraxas-365/relay/pkg/iam/company/companysrv"
	"github.com/Abraxas-365/relay/pkg/iam/employer"
	"github.com/Abraxas-365/relay/pkg/iam/identity"
	"github.com/Abraxas-365/relay/pkg/iam/pending"
	"github.com/Abraxas-365/relay/pkg/iam/session"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/Abraxas-365/relay/pkg/logx"
)

// Config tunes the orchestrator.
type Config struct {
	Redirect                  auth.RedirectPolicy
	ResendHint                time.Duration
	RecoverSignupFromMetadata bool
	PhoneRegion               string
}

// WelcomeNotifier schedules the welcome email of a new employer.
type WelcomeNotifier interface {
	EnqueueWelcome(ctx context.Context, p auth.WelcomePayload) error
}

// AuthService drives a client through signup or login, code verification
// and session establishment. Every operation returns an auth.Result.
type AuthService struct {
	provider   identity.Provider
	employers  employer.Repository
	companies  company.Repository
	pending    pending.Store
	sessions   *session.Holder
	onboarding *companysrv.CompanyService
	audit      auth.AuditService
	welcome    WelcomeNotifier
	cfg        Config
	now        func() time.Time
}

func NewAuthService(
	provider identity.Provider,
	employers employer.Repository,
	companies company.Repository,
	pendingStore pending.Store,
	sessions *session.Holder,
	onboarding *companysrv.CompanyService,
	audit auth.AuditService,
	cfg Config,
) *AuthService {
	if cfg.Redirect.CompanySetupPath == "" {
		cfg.Redirect.CompanySetupPath = "/onboarding/company"
	}
	if cfg.Redirect.DashboardPath == "" {
		cfg.Redirect.DashboardPath = "/dashboard"
	}
	if cfg.ResendHint <= 0 {
		cfg.ResendHint = 60 * time.Second
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = "US"
	}
	return &AuthService{
		provider:   provider,
		employers:  employers,
		companies:  companies,
		pending:    pendingStore,
		sessions:   sessions,
		onboarding: onboarding,
		audit:      audit,
		cfg:        cfg,
		now:        time.Now,
	}
}

// WithWelcomeNotifier enables the welcome job for new employers.
func (s *AuthService) WithWelcomeNotifier(w WelcomeNotifier) *AuthService {
	s.welcome = w
	return s
}

// WithClock replaces the service clock. Used by tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// ============================================================================
// Signup / Login / Resend
// ============================================================================

// Signup dispatches a code for a new account and parks the profile in the
// device's pending slot until the code is verified.
func (s *AuthService) Signup(ctx context.Context, client auth.Client, req auth.SignupRequest) auth.Result {
	if err := requireDevice(client); err != nil {
		return auth.Fail(err)
	}
	if err := req.Normalize(s.cfg.PhoneRegion); err != nil {
		return auth.Fail(err)
	}
	if err := s.requireCompany(ctx, req.CompanyID); err != nil {
		return auth.Fail(err)
	}

	existing, err := s.employers.FindByEmail(ctx, req.Email)
	if err != nil {
		return auth.Fail(auth.ErrInternal().WithCause(err))
	}
	if existing != nil {
		s.audit.LogCodeDispatched(ctx, req.Email, pending.IntentKindSignup, false, client)
		return auth.Fail(auth.ErrDuplicateAccount())
	}

	intent := pending.NewSignupIntent(pending.SignupIntent{
		Email:         req.Email,
		FullName:      req.FullName,
		Phone:         req.Phone,
		JobRole:       req.JobRole,
		CompanyID:     req.CompanyID,
		CreateCompany: req.CreateCompany,
	}, s.now())

	return s.dispatchAndPark(ctx, client, intent)
}

// requireCompany checks that a company named in a signup exists, so a bad id
// fails here instead of at profile creation.
func (s *AuthService) requireCompany(ctx context.Context, id *kernel.CompanyID) error {
	if id == nil {
		return nil
	}
	_, err := s.companies.FindByID(ctx, *id)
	if errx.IsCode(err, company.CodeCompanyNotFound) {
		return auth.ErrValidationFailed().
			WithDetail("fields", map[string]string{"company_id": "unknown company"})
	}
	if err != nil {
		return auth.ErrInternal().WithCause(err)
	}
	return nil
}

// Login dispatches a code to an existing, active employer.
func (s *AuthService) Login(ctx context.Context, client auth.Client, req auth.EmailRequest) auth.Result {
	if err := requireDevice(client); err != nil {
		return auth.Fail(err)
	}
	if err := req.Normalize(); err != nil {
		return auth.Fail(err)
	}

	if err := s.requireActiveEmployer(ctx, req.Email); err != nil {
		s.audit.LogCodeDispatched(ctx, req.Email, pending.IntentKindLogin, false, client)
		return auth.Fail(err)
	}

	return s.dispatchAndPark(ctx, client, pending.NewLoginIntent(req.Email, s.now()))
}

// ResendOTP replays the dispatch of the flow in progress. A signup intent
// for the email is re-sent with its metadata; anything else is treated as a
// login. The single pending slot is re-put, never duplicated.
func (s *AuthService) ResendOTP(ctx context.Context, client auth.Client, req auth.EmailRequest) auth.Result {
	if err := requireDevice(client); err != nil {
		return auth.Fail(err)
	}
	if err := req.Normalize(); err != nil {
		return auth.Fail(err)
	}

	current, err := s.pending.Get(ctx, client.DeviceID)
	if err != nil {
		return auth.Fail(auth.ErrInternal().WithCause(err))
	}
	if current.IsSignupFor(req.Email) {
		return s.dispatchAndPark(ctx, client, *current)
	}

	if err := s.requireActiveEmployer(ctx, req.Email); err != nil {
		s.audit.LogCodeDispatched(ctx, req.Email, pending.IntentKindLogin, false, client)
		return auth.Fail(err)
	}
	return s.dispatchAndPark(ctx, client, pending.NewLoginIntent(req.Email, s.now()))
}

// dispatchAndPark asks the provider for a code and stores intent in the
// device slot. Nothing is stored when the dispatch fails.
func (s *AuthService) dispatchAndPark(ctx context.Context, client auth.Client, intent pending.Intent) auth.Result {
	opts := identity.DispatchOptions{}
	if intent.Kind == pending.IntentKindSignup {
		opts.CreateIfMissing = true
		opts.Metadata = intent.Signup.ToMetadata()
	}

	if err := s.provider.DispatchCode(ctx, intent.Email, opts); err != nil {
		s.audit.LogCodeDispatched(ctx, intent.Email, intent.Kind, false, client)
		return auth.Fail(dispatchError(err))
	}

	if err := s.pending.Put(ctx, client.DeviceID, intent); err != nil {
		logx.WithError(err).WithFields(logx.Fields{
			"device_id": client.DeviceID,
			"kind":      intent.Kind,
		}).Error("code dispatched but pending intent could not be stored")
		return auth.Fail(auth.ErrInternal().WithCause(err))
	}

	s.audit.LogCodeDispatched(ctx, intent.Email, intent.Kind, true, client)

	return auth.OK("Verification code sent", auth.AwaitingCode{
		State:             auth.FlowStateAwaitingCode,
		Kind:              intent.Kind,
		Email:             intent.Email,
		ResendAvailableAt: s.now().Add(s.cfg.ResendHint),
	})
}

func (s *AuthService) requireActiveEmployer(ctx context.Context, email string) error {
	emp, err := s.employers.FindByEmail(ctx, email)
	if err != nil {
		return auth.ErrInternal().WithCause(err)
	}
	if emp == nil || !emp.IsActive {
		return auth.ErrAccountNotFound()
	}
	return nil
}

// ============================================================================
// Verification
// ============================================================================

// VerifyOTP submits the code to the provider and, when accepted, completes
// the signup or login recorded in the device slot.
func (s *AuthService) VerifyOTP(ctx context.Context, client auth.Client, req auth.VerifyRequest) auth.Result {
	if err := requireDevice(client); err != nil {
		return auth.Fail(err)
	}
	if err := req.Normalize(); err != nil {
		return auth.Fail(err)
	}

	ver, err := s.provider.VerifyCode(ctx, req.Email, req.Code)
	if err != nil {
		s.audit.LogVerification(ctx, req.Email, false, errx.CodeOf(err), client)
		return auth.Fail(verifyError(err))
	}

	intent, err := s.pending.Get(ctx, client.DeviceID)
	if err != nil {
		logx.WithError(err).WithField("device_id", client.DeviceID).
			Warn("pending intent unreadable, continuing as login")
		intent = nil
	}

	var emp *employer.Employer
	if intent.IsSignupFor(req.Email) {
		emp, err = s.completeSignup(ctx, client, ver.Identity, *intent.Signup, false)
	} else {
		emp, err = s.completeLogin(ctx, client, ver.Identity)
	}
	if err != nil {
		s.abandonVerification(ctx, client, ver, err)
		return auth.Fail(err)
	}

	comp := s.loadCompany(ctx, emp)
	redirect := auth.RedirectFor(emp.CompanyID)

	s.clearPendingState(ctx, client.DeviceID)
	if err := s.pending.PutRedirect(ctx, client.DeviceID, string(redirect)); err != nil {
		logx.WithError(err).WithField("device_id", client.DeviceID).Warn("failed to store redirect hint")
	}
	s.sessions.Set(ver.SessionToken, *emp, comp)
	s.audit.LogVerification(ctx, req.Email, true, "", client)

	return auth.OK("Email verified", auth.Verified{
		State:        auth.FlowStateVerified,
		Employer:     *emp,
		Company:      comp,
		Redirect:     redirect,
		RedirectPath: s.cfg.Redirect.Path(redirect),
		SessionToken: ver.SessionToken,
		ExpiresAt:    ver.ExpiresAt,
	})
}

// completeSignup creates the employer from the signup profile. An existing
// row for the email wins when it is already verified.
func (s *AuthService) completeSignup(ctx context.Context, client auth.Client, ident identity.Identity, signup pending.SignupIntent, recovered bool) (*employer.Employer, error) {
	email := kernel.NormalizeEmail(ident.Email)

	existing, err := s.employers.FindByEmail(ctx, email)
	if err != nil {
		return nil, auth.ErrProfileCreationFailed().WithCause(err)
	}
	if existing != nil {
		return s.adoptExisting(ctx, existing, email)
	}

	now := s.now()
	created, err := s.employers.Insert(ctx, employer.Employer{
		ID:          kernel.NewEmployerID(ident.SubjectID.String()),
		FullName:    signup.FullName,
		Email:       email,
		Phone:       signup.Phone,
		JobRole:     signup.JobRole,
		CompanyID:   signup.CompanyID,
		IsVerified:  true,
		IsActive:    true,
		LastLoginAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if !errx.IsCode(err, employer.CodeEmailTaken) {
			return nil, auth.ErrProfileCreationFailed().WithCause(err)
		}
		// lost the race against a concurrent verification of the same signup
		existing, err = s.employers.FindByEmail(ctx, email)
		if err != nil || existing == nil {
			return nil, auth.ErrProfileCreationFailed().WithCause(err)
		}
		return s.adoptExisting(ctx, existing, email)
	}

	s.audit.LogAccountCreated(ctx, created.ID, created.Email, recovered, client)
	s.enqueueWelcome(ctx, created)

	return created, nil
}

func (s *AuthService) adoptExisting(ctx context.Context, existing *employer.Employer, email string) (*employer.Employer, error) {
	if !existing.IsVerified || existing.Email != email {
		logx.WithFields(logx.Fields{
			"employer_id": existing.ID,
			"is_verified": existing.IsVerified,
		}).Warn("signup verified against an unusable existing profile")
		return nil, auth.ErrProfileCreationFailed()
	}
	if !existing.IsActive {
		return nil, auth.ErrAccountNotFound()
	}
	return s.touchLogin(ctx, existing)
}

// completeLogin loads the employer behind a verified identity. Without a
// profile, signup metadata left on the identity is used to finish a signup
// whose pending intent was lost.
func (s *AuthService) completeLogin(ctx context.Context, client auth.Client, ident identity.Identity) (*employer.Employer, error) {
	emp, err := s.employers.FindByEmail(ctx, ident.Email)
	if err != nil {
		return nil, auth.ErrInternal().WithCause(err)
	}

	if emp == nil {
		if s.cfg.RecoverSignupFromMetadata {
			if signup, ok := pending.SignupIntentFromMetadata(ident.Email, ident.Metadata); ok {
				logx.WithField("subject_id", ident.SubjectID).Info("recovering signup from provider metadata")
				return s.completeSignup(ctx, client, ident, *signup, true)
			}
		}
		return nil, auth.ErrProfileNotFound()
	}

	if !emp.IsActive {
		return nil, auth.ErrAccountNotFound()
	}

	updated, err := s.touchLogin(ctx, emp)
	if err != nil {
		return nil, err
	}
	s.audit.LogLogin(ctx, updated.ID, client)
	return updated, nil
}

func (s *AuthService) touchLogin(ctx context.Context, emp *employer.Employer) (*employer.Employer, error) {
	now := s.now()
	updated, err := s.employers.Update(ctx, emp.ID, employer.Patch{LastLoginAt: &now})
	if err != nil {
		return nil, auth.ErrInternal().WithCause(err)
	}
	return updated, nil
}

// abandonVerification runs after the provider accepted a code but no usable
// profile came out of it: the provider session is ended and, for permanent
// failures, the pending state is cleared.
func (s *AuthService) abandonVerification(ctx context.Context, client auth.Client, ver *identity.Verification, cause error) {
	if err := s.provider.EndSession(ctx, ver.SessionToken); err != nil {
		logx.WithError(err).Warn("failed to end provider session of abandoned verification")
	}

	if errx.IsCode(cause, auth.CodeProfileNotFound) ||
		errx.IsCode(cause, auth.CodeProfileCreationFailed) ||
		errx.IsCode(cause, auth.CodeAccountNotFound) {
		s.clearPendingState(ctx, client.DeviceID)
	}

	s.audit.LogVerification(ctx, ver.Identity.Email, false, errx.CodeOf(cause), client)
}

func (s *AuthService) loadCompany(ctx context.Context, emp *employer.Employer) *company.Company {
	if !emp.HasCompany() {
		return nil
	}
	comp, err := s.companies.FindByID(ctx, *emp.CompanyID)
	if err != nil {
		if !errx.IsCode(err, company.CodeCompanyNotFound) {
			logx.WithError(err).WithField("company_id", *emp.CompanyID).Warn("failed to load company")
		}
		return nil
	}
	return comp
}

func (s *AuthService) enqueueWelcome(ctx context.Context, emp *employer.Employer) {
	if s.welcome == nil {
		return
	}
	err := s.welcome.EnqueueWelcome(ctx, auth.WelcomePayload{
		EmployerID:   emp.ID,
		Email:        emp.Email,
		FullName:     emp.FullName,
		NeedsCompany: !emp.HasCompany(),
	})
	if err != nil {
		logx.WithError(err).WithField("employer_id", emp.ID).Warn("failed to enqueue welcome email")
	}
}

// ============================================================================
// Session
// ============================================================================

// Logout ends the provider session, forgets the cached session and clears
// the pending state. It always succeeds.
func (s *AuthService) Logout(ctx context.Context, client auth.Client) auth.Result {
	var employerID kernel.EmployerID
	if client.SessionToken != "" {
		if current, err := s.sessions.Get(ctx, client.SessionToken); err == nil && current != nil {
			employerID = current.Employer.ID
		}
	}

	results := asyncx.AllSettled(ctx,
		func(ctx context.Context) (struct{}, error) {
			if client.SessionToken == "" {
				return struct{}{}, nil
			}
			return struct{}{}, s.provider.EndSession(ctx, client.SessionToken)
		},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.deletePendingState(ctx, client.DeviceID)
		},
	)
	for _, r := range results {
		if !r.OK() {
			logx.WithError(r.Err).WithField("device_id", client.DeviceID).Warn("logout step failed")
		}
	}

	s.sessions.Clear(client.SessionToken)
	if !employerID.IsEmpty() {
		s.audit.LogLogout(ctx, employerID, client)
	}

	return auth.OK("Signed out", nil)
}

// CurrentUser returns the session behind the client's token. A missing or
// dead session is a success with no data.
func (s *AuthService) CurrentUser(ctx context.Context, client auth.Client) auth.Result {
	current, err := s.sessions.Get(ctx, client.SessionToken)
	if err != nil {
		return auth.Fail(auth.ErrInternal().WithCause(err))
	}
	if current == nil {
		return auth.OK("No active session", nil)
	}
	return auth.OK("Active session", s.currentUser(current))
}

// FlowStatus reports where the client stands so a reloaded page can resume:
// verified with the session's redirect, awaiting a code, or anonymous.
func (s *AuthService) FlowStatus(ctx context.Context, client auth.Client) auth.Result {
	if client.SessionToken != "" {
		current, err := s.sessions.Get(ctx, client.SessionToken)
		if err != nil {
			return auth.Fail(auth.ErrInternal().WithCause(err))
		}
		if current != nil {
			return auth.OK("Verified", s.currentUser(current))
		}
	}

	if client.DeviceID.IsEmpty() {
		return auth.OK("Anonymous", auth.FlowStatus{State: auth.FlowStateAnonymous})
	}

	intent, err := s.pending.Get(ctx, client.DeviceID)
	if err != nil {
		return auth.Fail(auth.ErrInternal().WithCause(err))
	}
	if intent != nil {
		return auth.OK("Awaiting code", auth.FlowStatus{
			State: auth.FlowStateAwaitingCode,
			Kind:  intent.Kind,
			Email: intent.Email,
		})
	}

	hint, err := s.pending.GetRedirect(ctx, client.DeviceID)
	if err != nil {
		return auth.Fail(auth.ErrInternal().WithCause(err))
	}
	status := auth.FlowStatus{State: auth.FlowStateAnonymous}
	if hint != "" {
		status.Redirect = auth.Redirect(hint)
		status.RedirectPath = s.cfg.Redirect.Path(status.Redirect)
	}
	return auth.OK("Anonymous", status)
}

func (s *AuthService) currentUser(current *session.Session) auth.CurrentUser {
	redirect := auth.RedirectFor(current.Employer.CompanyID)
	return auth.CurrentUser{
		Employer:     current.Employer,
		Company:      current.Company,
		Redirect:     redirect,
		RedirectPath: s.cfg.Redirect.Path(redirect),
	}
}

// ============================================================================
// Onboarding
// ============================================================================

// CompleteCompany creates the company of the signed-in employer and links it.
func (s *AuthService) CompleteCompany(ctx context.Context, client auth.Client, ac *kernel.AuthContext, req companysrv.CreateCompanyRequest) auth.Result {
	if !ac.IsValid() {
		return auth.Fail(auth.ErrUnauthenticated())
	}

	comp, emp, err := s.onboarding.CreateForEmployer(ctx, ac.EmployerID, req)
	if err != nil {
		return auth.Fail(onboardingError(err))
	}

	current := s.sessions.Set(ac.SessionToken, *emp, comp)
	if !client.DeviceID.IsEmpty() {
		if err := s.pending.PutRedirect(ctx, client.DeviceID, string(auth.RedirectDashboard)); err != nil {
			logx.WithError(err).WithField("device_id", client.DeviceID).Warn("failed to store redirect hint")
		}
	}
	s.audit.LogCompanyLinked(ctx, emp.ID, comp.ID, client)

	return auth.OK("Company created", s.currentUser(current))
}

// ============================================================================
// Pending state
// ============================================================================

// clearPendingState deletes the pending intent and the redirect hint of the
// device. Failures are logged.
func (s *AuthService) clearPendingState(ctx context.Context, device kernel.DeviceID) {
	if err := s.deletePendingState(ctx, device); err != nil {
		logx.WithError(err).WithField("device_id", device).Warn("failed to clear pending state")
	}
}

func (s *AuthService) deletePendingState(ctx context.Context, device kernel.DeviceID) error {
	if device.IsEmpty() {
		return nil
	}
	_, err := asyncx.All(ctx,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.pending.Delete(ctx, device)
		},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.pending.DeleteRedirect(ctx, device)
		},
	)
	return err
}

// ============================================================================
// Error mapping
// ============================================================================

func requireDevice(client auth.Client) error {
	if client.DeviceID.IsEmpty() {
		return auth.ErrValidationFailed().WithDetail("reason", "missing device id")
	}
	return nil
}

func dispatchError(err error) *errx.Error {
	if errx.IsCode(err, identity.CodeIdentityNotFound) {
		return auth.ErrAccountNotFound().WithCause(err)
	}
	return auth.ErrCodeDispatchFailed().WithCause(err).WithDetail("reason", errx.CodeOf(err))
}

func verifyError(err error) *errx.Error {
	if !errx.IsCode(err, identity.CodeInvalidCode) {
		return auth.ErrInternal().WithCause(err)
	}
	out := auth.ErrInvalidOrExpiredCode().WithCause(err)
	var xerr *errx.Error
	if errx.As(err, &xerr) {
		for _, key := range []string{"reason", "attempts_remaining"} {
			if v, ok := xerr.Details[key]; ok {
				out.WithDetail(key, v)
			}
		}
	}
	return out
}

func onboardingError(err error) *errx.Error {
	switch {
	case errx.IsCode(err, company.CodeInvalidCompanyData):
		out := auth.ErrValidationFailed().WithCause(err)
		var xerr *errx.Error
		if errx.As(err, &xerr) {
			out.WithDetails(xerr.Details)
		}
		return out
	case errx.IsCode(err, company.CodeAlreadyLinked):
		return auth.ErrCompanyAlreadyLinked().WithCause(err)
	case errx.IsCode(err, employer.CodeEmployerNotFound):
		return auth.ErrProfileNotFound().WithCause(err)
	default:
		return auth.ErrInternal().WithCause(err)
	}
}
