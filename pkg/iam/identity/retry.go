package identity

import (
	"context"
	"errors"
	"time"

	"github.com/Abraxas-365/relay/pkg/asyncx"
	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/logx"
)

// RetryingProvider retries transient dispatch failures and normalizes errors
// from the wrapped provider into this package's registry.
//
// Only DispatchCode is retried. Verification is not: a retried verify would
// spend extra attempts on the same code.
type RetryingProvider struct {
	next      Provider
	attempts  int
	baseDelay time.Duration
}

func NewRetryingProvider(next Provider, retries int, baseDelay time.Duration) *RetryingProvider {
	if retries < 0 {
		retries = 0
	}
	return &RetryingProvider{
		next:      next,
		attempts:  retries + 1,
		baseDelay: baseDelay,
	}
}

func (p *RetryingProvider) DispatchCode(ctx context.Context, email string, opts DispatchOptions) error {
	attempt := 0
	_, err := asyncx.RetryWithBackoff(ctx, p.attempts, p.baseDelay, func(ctx context.Context) (struct{}, error) {
		attempt++
		err := p.next.DispatchCode(ctx, email, opts)
		if err == nil {
			return struct{}{}, nil
		}
		if !isTransient(err) {
			return struct{}{}, asyncx.Permanent(err)
		}
		logx.WithFields(logx.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("identity provider dispatch failed, retrying")
		return struct{}{}, err
	})
	if err == nil {
		return nil
	}
	return normalize(err, CodeDispatchFailed)
}

func (p *RetryingProvider) VerifyCode(ctx context.Context, email, code string) (*Verification, error) {
	v, err := p.next.VerifyCode(ctx, email, code)
	if err != nil {
		return nil, normalize(err, CodeProviderUnavailable)
	}
	return v, nil
}

func (p *RetryingProvider) CurrentSession(ctx context.Context, token string) (*Identity, error) {
	ident, err := p.next.CurrentSession(ctx, token)
	if err != nil {
		return nil, normalize(err, CodeProviderUnavailable)
	}
	return ident, nil
}

func (p *RetryingProvider) EndSession(ctx context.Context, token string) error {
	if err := p.next.EndSession(ctx, token); err != nil {
		return normalize(err, CodeProviderUnavailable)
	}
	return nil
}

// isTransient treats external and unregistered failures as retryable.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var xerr *errx.Error
	if !errx.As(err, &xerr) {
		return true
	}
	return xerr.Type == errx.TypeExternal
}

// normalize keeps errors already registered here and maps everything else onto fallback.
func normalize(err error, fallback *errx.ErrorCode) error {
	var xerr *errx.Error
	if errx.As(err, &xerr) && isIdentityCode(xerr) {
		return err
	}
	return ErrRegistry.NewWithCause(fallback, err)
}

func isIdentityCode(e *errx.Error) bool {
	for _, c := range ErrRegistry.Codes() {
		if c.Code == e.Code {
			return true
		}
	}
	return false
}
