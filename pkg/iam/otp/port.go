package otp

import (
	"context"
	"time"
)

// Repository keeps at most one code per contact and purpose.
// Save replaces whatever was stored before, which invalidates older codes.
type Repository interface {
	Save(ctx context.Context, otp *OTP) error
	// GetLatest returns nil, nil when no code exists.
	GetLatest(ctx context.Context, contact string, purpose Purpose) (*OTP, error)
	// ClaimAttempt atomically spends one attempt on the stored code with
	// otp.ID and returns the attempts used so far. It fails with
	// ErrInvalidOTP when that code was replaced or removed and with
	// ErrTooManyAttempts when none are left. Nothing else is written.
	ClaimAttempt(ctx context.Context, otp *OTP) (int, error)
	// MarkVerified stamps the stored code with otp.ID as verified at `at`
	// unless it already carries a stamp, and returns the stored code.
	// stamped is false when another verification got there first.
	MarkVerified(ctx context.Context, otp *OTP, at time.Time) (stored *OTP, stamped bool, err error)
	Delete(ctx context.Context, contact string, purpose Purpose) error
}

// NotificationService is a generic interface for sending OTP codes
type NotificationService interface {
	SendOTP(ctx context.Context, contact string, code string, ttl string) error
}
