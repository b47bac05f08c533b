package otpinfra

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Abraxas-365/relay/pkg/iam/otp"
)

// InMemoryOTPRepository is a process-local Repository for development and tests.
type InMemoryOTPRepository struct {
	mu   sync.Mutex
	otps map[string]otp.OTP
}

func NewInMemoryOTPRepository() *InMemoryOTPRepository {
	return &InMemoryOTPRepository{otps: make(map[string]otp.OTP)}
}

func memoryKey(contact string, purpose otp.Purpose) string {
	return string(purpose) + ":" + strings.ToLower(contact)
}

func (r *InMemoryOTPRepository) Save(_ context.Context, o *otp.OTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.otps[memoryKey(o.Contact, o.Purpose)] = *o
	return nil
}

func (r *InMemoryOTPRepository) GetLatest(_ context.Context, contact string, purpose otp.Purpose) (*otp.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.otps[memoryKey(contact, purpose)]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *InMemoryOTPRepository) ClaimAttempt(_ context.Context, o *otp.OTP) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := memoryKey(o.Contact, o.Purpose)
	stored, ok := r.otps[key]
	if !ok || stored.ID != o.ID {
		return 0, otp.ErrInvalidOTP()
	}
	if stored.IsExhausted() {
		return stored.Attempts, otp.ErrTooManyAttempts()
	}
	stored.Attempts++
	r.otps[key] = stored
	return stored.Attempts, nil
}

func (r *InMemoryOTPRepository) MarkVerified(_ context.Context, o *otp.OTP, at time.Time) (*otp.OTP, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := memoryKey(o.Contact, o.Purpose)
	stored, ok := r.otps[key]
	if !ok || stored.ID != o.ID {
		return nil, false, otp.ErrInvalidOTP()
	}
	if stored.IsVerified() {
		return &stored, false, nil
	}
	stored.MarkVerified(at)
	r.otps[key] = stored
	return &stored, true, nil
}

func (r *InMemoryOTPRepository) Delete(_ context.Context, contact string, purpose otp.Purpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.otps, memoryKey(contact, purpose))
	return nil
}
