package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Purpose string

const (
	PurposeSignIn Purpose = "SIGN_IN"
)

// OTP is a single issued code. Only the hash of the code is ever stored.
type OTP struct {
	ID          string     `json:"id"`
	Contact     string     `json:"contact"`
	CodeHash    string     `json:"code_hash"`
	Purpose     Purpose    `json:"purpose"`
	ExpiresAt   time.Time  `json:"expires_at"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (o *OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

func (o *OTP) IsVerified() bool {
	return o.VerifiedAt != nil
}

func (o *OTP) IsExhausted() bool {
	return o.Attempts >= o.MaxAttempts
}

// IsValid reports whether the code can still be submitted for a first verification.
func (o *OTP) IsValid(now time.Time) bool {
	return !o.IsExpired(now) && !o.IsVerified() && !o.IsExhausted()
}

// InReplayGrace reports whether a verified code may be accepted once more.
func (o *OTP) InReplayGrace(now time.Time, grace time.Duration) bool {
	if o.VerifiedAt == nil || grace <= 0 || o.IsExpired(now) {
		return false
	}
	return now.Before(o.VerifiedAt.Add(grace))
}

func (o *OTP) AttemptsRemaining() int {
	if o.Attempts >= o.MaxAttempts {
		return 0
	}
	return o.MaxAttempts - o.Attempts
}

func (o *OTP) MarkVerified(now time.Time) {
	o.VerifiedAt = &now
}

// Matches compares a submitted code against the stored hash.
func (o *OTP) Matches(code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(o.CodeHash), []byte(code)) == nil
}

// HashCode hashes a plaintext code for storage.
func HashCode(code string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateOTPCode generates a cryptographically secure random numeric code
func GenerateOTPCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("otp length must be positive, got %d", length)
	}

	max := new(big.Int)
	max.Exp(big.NewInt(10), big.NewInt(int64(length)), nil)

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	// Format with leading zeros
	format := fmt.Sprintf("%%0%dd", length)
	return fmt.Sprintf(format, n), nil
}
