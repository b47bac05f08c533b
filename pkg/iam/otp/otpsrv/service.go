package otpsrv

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/relay/pkg/config"
	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/iam/otp"
	"github.com/Abraxas-365/relay/pkg/logx"
	"github.com/google/uuid"
)

type OTPService struct {
	repo                otp.Repository
	notificationService otp.NotificationService
	cfg                 config.OTPConfig
	now                 func() time.Time
}

func NewOTPService(repo otp.Repository, notificationService otp.NotificationService, cfg config.OTPConfig) *OTPService {
	if cfg.Length == 0 {
		cfg.Length = 6
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.TTL == 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &OTPService{
		repo:                repo,
		notificationService: notificationService,
		cfg:                 cfg,
		now:                 time.Now,
	}
}

// WithClock replaces the service clock. Used by tests.
func (s *OTPService) WithClock(now func() time.Time) *OTPService {
	s.now = now
	return s
}

// GenerateOTP issues a fresh code for contact, replacing any previous one, and sends it.
func (s *OTPService) GenerateOTP(ctx context.Context, contact string, purpose otp.Purpose) (*otp.OTP, error) {
	now := s.now()

	if s.cfg.ResendCooldown > 0 {
		existing, err := s.repo.GetLatest(ctx, contact, purpose)
		if err != nil {
			return nil, errx.Wrap(err, "failed to load latest OTP", errx.TypeInternal)
		}
		if existing != nil && existing.IsValid(now) {
			if wait := s.cfg.ResendCooldown - now.Sub(existing.CreatedAt); wait > 0 {
				return nil, otp.ErrTooManyRequests().
					WithDetail("retry_after_seconds", int(wait.Round(time.Second).Seconds()))
			}
		}
	}

	code, err := otp.GenerateOTPCode(s.cfg.Length)
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate OTP code", errx.TypeInternal)
	}

	hash, err := otp.HashCode(code, s.cfg.BcryptCost)
	if err != nil {
		return nil, errx.Wrap(err, "failed to hash OTP code", errx.TypeInternal)
	}

	newOTP := &otp.OTP{
		ID:          uuid.NewString(),
		Contact:     contact,
		CodeHash:    hash,
		Purpose:     purpose,
		ExpiresAt:   now.Add(s.cfg.TTL),
		MaxAttempts: s.cfg.MaxAttempts,
		CreatedAt:   now,
	}

	if err := s.repo.Save(ctx, newOTP); err != nil {
		return nil, errx.Wrap(err, "failed to save OTP", errx.TypeInternal)
	}

	if err := s.notificationService.SendOTP(ctx, contact, code, formatTTL(s.cfg.TTL)); err != nil {
		// An undelivered code must not stay redeemable.
		if delErr := s.repo.Delete(ctx, contact, purpose); delErr != nil {
			logx.WithError(delErr).Warn("failed to discard undelivered OTP")
		}
		return nil, otp.ErrDeliveryFailed().WithCause(err)
	}

	return newOTP, nil
}

// VerifyOTP validates code against the latest code issued for contact.
func (s *OTPService) VerifyOTP(ctx context.Context, contact string, code string, purpose otp.Purpose) (*otp.OTP, error) {
	now := s.now()

	otpEntity, err := s.repo.GetLatest(ctx, contact, purpose)
	if err != nil {
		return nil, errx.Wrap(err, "failed to load OTP", errx.TypeInternal)
	}
	if otpEntity == nil {
		return nil, otp.ErrInvalidOTP()
	}

	if otpEntity.IsExpired(now) {
		return nil, otp.ErrOTPExpired()
	}

	if otpEntity.IsVerified() {
		return s.replay(ctx, otpEntity, code, now)
	}

	if otpEntity.IsExhausted() {
		return nil, otp.ErrTooManyAttempts()
	}

	// The attempt is spent before the hash is compared, so parallel guesses
	// cannot exceed MaxAttempts.
	used, err := s.repo.ClaimAttempt(ctx, otpEntity)
	if err != nil {
		return nil, storeError(err, "failed to count OTP attempt")
	}

	if !otpEntity.Matches(code) {
		otpEntity.Attempts = used
		return nil, otp.ErrInvalidOTP().WithDetail("attempts_remaining", otpEntity.AttemptsRemaining())
	}

	stored, stamped, err := s.repo.MarkVerified(ctx, otpEntity, now)
	if err != nil {
		return nil, storeError(err, "failed to mark OTP verified")
	}
	if !stamped && !stored.InReplayGrace(now, s.cfg.ReplayGrace) {
		return nil, otp.ErrOTPAlreadyUsed()
	}
	return stored, nil
}

// replay accepts a verified code again inside the grace window. Replays spend
// attempts like first verifications do.
func (s *OTPService) replay(ctx context.Context, o *otp.OTP, code string, now time.Time) (*otp.OTP, error) {
	if !o.InReplayGrace(now, s.cfg.ReplayGrace) {
		return nil, otp.ErrOTPAlreadyUsed()
	}
	if _, err := s.repo.ClaimAttempt(ctx, o); err != nil {
		if errx.IsCode(err, otp.CodeTooManyAttempts) {
			return nil, otp.ErrOTPAlreadyUsed()
		}
		return nil, storeError(err, "failed to count OTP attempt")
	}
	if !o.Matches(code) {
		return nil, otp.ErrOTPAlreadyUsed()
	}
	return o, nil
}

// storeError passes code rejections through and wraps everything else.
func storeError(err error, msg string) error {
	if otp.IsCodeRejection(err) {
		return err
	}
	return errx.Wrap(err, msg, errx.TypeInternal)
}

func formatTTL(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
