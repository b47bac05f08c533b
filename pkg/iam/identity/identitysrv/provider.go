package identitysrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/iam/identity"
	"github.com/Abraxas-365/relay/pkg/iam/otp"
	"github.com/Abraxas-365/relay/pkg/iam/otp/otpsrv"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/Abraxas-365/relay/pkg/logx"
	"github.com/google/uuid"
)

// OTPProvider is the in-house identity.Provider: email identities in the
// identity repository, codes through the OTP service, sessions as signed
// tokens backed by a revocable session record.
type OTPProvider struct {
	identities identity.Repository
	otps       *otpsrv.OTPService
	sessions   identity.SessionRepository
	tokens     identity.TokenService
	sessionTTL time.Duration
	now        func() time.Time
}

func NewOTPProvider(
	identities identity.Repository,
	otps *otpsrv.OTPService,
	sessions identity.SessionRepository,
	tokens identity.TokenService,
	sessionTTL time.Duration,
) *OTPProvider {
	if sessionTTL == 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &OTPProvider{
		identities: identities,
		otps:       otps,
		sessions:   sessions,
		tokens:     tokens,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// WithClock replaces the provider clock. Used by tests.
func (p *OTPProvider) WithClock(now func() time.Time) *OTPProvider {
	p.now = now
	return p
}

var _ identity.Provider = (*OTPProvider)(nil)

func (p *OTPProvider) DispatchCode(ctx context.Context, email string, opts identity.DispatchOptions) error {
	email = kernel.NormalizeEmail(email)

	ident, err := p.ensureIdentity(ctx, email, opts)
	if err != nil {
		return err
	}

	if _, err := p.otps.GenerateOTP(ctx, email, otp.PurposeSignIn); err != nil {
		switch {
		case errx.IsCode(err, otp.CodeTooManyRequests):
			return identity.ErrDispatchRejected().WithCause(err)
		case errx.IsCode(err, otp.CodeDeliveryFailed):
			return identity.ErrDispatchFailed().WithCause(err)
		default:
			return identity.ErrStoreFailed().WithCause(err)
		}
	}

	logx.WithFields(logx.Fields{
		"subject_id": ident.SubjectID,
		"created":    opts.CreateIfMissing,
	}).Debug("verification code dispatched")

	return nil
}

func (p *OTPProvider) ensureIdentity(ctx context.Context, email string, opts identity.DispatchOptions) (*identity.Identity, error) {
	ident, err := p.identities.FindByEmail(ctx, email)
	if err != nil {
		return nil, identity.ErrStoreFailed().WithCause(err)
	}

	if ident == nil {
		if !opts.CreateIfMissing {
			return nil, identity.ErrIdentityNotFound()
		}
		now := p.now()
		created, err := p.identities.Create(ctx, identity.Identity{
			SubjectID: kernel.NewSubjectID(uuid.NewString()),
			Email:     email,
			Metadata:  opts.Metadata,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err == nil {
			return created, nil
		}
		if !errx.IsCode(err, identity.CodeIdentityExists) {
			return nil, identity.ErrStoreFailed().WithCause(err)
		}
		// Lost a creation race; the winner's row is the identity.
		ident, err = p.identities.FindByEmail(ctx, email)
		if err != nil {
			return nil, identity.ErrStoreFailed().WithCause(err)
		}
		if ident == nil {
			return nil, identity.ErrStoreFailed()
		}
	}

	if opts.Metadata != nil {
		if err := p.identities.UpdateMetadata(ctx, ident.SubjectID, opts.Metadata); err != nil {
			return nil, identity.ErrStoreFailed().WithCause(err)
		}
		ident.Metadata = opts.Metadata
	}
	return ident, nil
}

func (p *OTPProvider) VerifyCode(ctx context.Context, email, code string) (*identity.Verification, error) {
	email = kernel.NormalizeEmail(email)

	if _, err := p.otps.VerifyOTP(ctx, email, code, otp.PurposeSignIn); err != nil {
		if otp.IsCodeRejection(err) {
			reject := identity.ErrInvalidCode().WithCause(err).WithDetail("reason", errx.CodeOf(err))
			var xerr *errx.Error
			if errx.As(err, &xerr) {
				if remaining, ok := xerr.Details["attempts_remaining"]; ok {
					reject.WithDetail("attempts_remaining", remaining)
				}
			}
			return nil, reject
		}
		return nil, identity.ErrStoreFailed().WithCause(err)
	}

	ident, err := p.identities.FindByEmail(ctx, email)
	if err != nil {
		return nil, identity.ErrStoreFailed().WithCause(err)
	}
	if ident == nil {
		return nil, identity.ErrIdentityNotFound()
	}

	if !ident.EmailVerified {
		if err := p.identities.MarkEmailVerified(ctx, ident.SubjectID); err != nil {
			return nil, identity.ErrStoreFailed().WithCause(err)
		}
		ident.EmailVerified = true
	}

	now := p.now()
	session := identity.Session{
		ID:        uuid.NewString(),
		SubjectID: ident.SubjectID,
		Email:     ident.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(p.sessionTTL),
	}
	if err := p.sessions.Save(ctx, session); err != nil {
		return nil, identity.ErrStoreFailed().WithCause(err)
	}

	token, err := p.tokens.IssueSessionToken(session)
	if err != nil {
		return nil, err
	}

	return &identity.Verification{
		Identity:     *ident,
		SessionToken: token,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

func (p *OTPProvider) CurrentSession(ctx context.Context, token string) (*identity.Identity, error) {
	session, err := p.lookupSession(ctx, token)
	if err != nil || session == nil {
		return nil, err
	}

	ident, err := p.identities.FindByID(ctx, session.SubjectID)
	if err != nil {
		if errx.IsCode(err, identity.CodeIdentityNotFound) {
			return nil, nil
		}
		return nil, identity.ErrStoreFailed().WithCause(err)
	}
	return ident, nil
}

func (p *OTPProvider) EndSession(ctx context.Context, token string) error {
	session, err := p.lookupSession(ctx, token)
	if err != nil || session == nil {
		return err
	}
	if err := p.sessions.Delete(ctx, session.ID); err != nil {
		return identity.ErrStoreFailed().WithCause(err)
	}
	return nil
}

// lookupSession returns nil, nil for any token that does not name a live session.
func (p *OTPProvider) lookupSession(ctx context.Context, token string) (*identity.Session, error) {
	if token == "" {
		return nil, nil
	}

	claims, err := p.tokens.ValidateSessionToken(token)
	if err != nil {
		logx.WithError(err).Debug("rejected session token")
		return nil, nil
	}

	session, err := p.sessions.Find(ctx, claims.SessionID)
	if err != nil {
		return nil, identity.ErrStoreFailed().WithCause(err)
	}
	if session == nil || session.SubjectID != claims.SubjectID || session.IsExpired(p.now()) {
		return nil, nil
	}
	return session, nil
}
