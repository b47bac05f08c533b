package otpsrv_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abraxas-365/relay/pkg/config"
	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/iam/otp"
	"github.com/Abraxas-365/relay/pkg/iam/otp/otpinfra"
	"github.com/Abraxas-365/relay/pkg/iam/otp/otpsrv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeNotifier struct {
	mu    sync.Mutex
	codes map[string][]string
	err   error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{codes: make(map[string][]string)}
}

func (n *fakeNotifier) SendOTP(_ context.Context, contact, code, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.codes[contact] = append(n.codes[contact], code)
	return nil
}

func (n *fakeNotifier) last(contact string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	codes := n.codes[contact]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newService(cfg config.OTPConfig) (*otpsrv.OTPService, *otpinfra.InMemoryOTPRepository, *fakeNotifier, *clock) {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.MinCost
	}
	repo := otpinfra.NewInMemoryOTPRepository()
	notifier := newFakeNotifier()
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := otpsrv.NewOTPService(repo, notifier, cfg).WithClock(clk.Now)
	return svc, repo, notifier, clk
}

const contact = "a@co.com"

func TestGenerateOTP_SendsAndStoresHash(t *testing.T) {
	svc, repo, notifier, _ := newService(config.OTPConfig{})
	ctx := context.Background()

	issued, err := svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)

	code := notifier.last(contact)
	require.Len(t, code, 6)

	stored, err := repo.GetLatest(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, issued.ID, stored.ID)
	assert.NotEqual(t, code, stored.CodeHash)
	assert.True(t, stored.Matches(code))
}

func TestGenerateOTP_OnlyLatestCodeIsValid(t *testing.T) {
	svc, _, notifier, _ := newService(config.OTPConfig{})
	ctx := context.Background()

	_, err := svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)
	first := notifier.last(contact)

	_, err = svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)
	second := notifier.last(contact)

	if first != second {
		_, err = svc.VerifyOTP(ctx, contact, first, otp.PurposeSignIn)
		assert.True(t, errx.IsCode(err, otp.CodeInvalidOTP))
	}

	_, err = svc.VerifyOTP(ctx, contact, second, otp.PurposeSignIn)
	assert.NoError(t, err)
}

func TestGenerateOTP_CooldownWhenConfigured(t *testing.T) {
	svc, _, _, clk := newService(config.OTPConfig{ResendCooldown: time.Minute})
	ctx := context.Background()

	_, err := svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)

	_, err = svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	assert.True(t, errx.IsCode(err, otp.CodeTooManyRequests))

	clk.Advance(61 * time.Second)
	_, err = svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	assert.NoError(t, err)
}

func TestGenerateOTP_DeliveryFailureLeavesNoCode(t *testing.T) {
	svc, repo, notifier, _ := newService(config.OTPConfig{})
	notifier.err = errors.New("ses throttled")
	ctx := context.Background()

	_, err := svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, otp.CodeDeliveryFailed))
	assert.Equal(t, errx.TypeExternal, errx.TypeOf(err))

	stored, err := repo.GetLatest(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestVerifyOTP_NoCodeIssued(t *testing.T) {
	svc, _, _, _ := newService(config.OTPConfig{})

	_, err := svc.VerifyOTP(context.Background(), contact, "123456", otp.PurposeSignIn)
	assert.True(t, errx.IsCode(err, otp.CodeInvalidOTP))
}

func TestVerifyOTP_WrongCodeCountsAttempts(t *testing.T) {
	svc, _, notifier, _ := newService(config.OTPConfig{MaxAttempts: 2})
	ctx := context.Background()

	_, err := svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)
	good := notifier.last(contact)
	bad := "000000"
	if good == bad {
		bad = "111111"
	}

	_, err = svc.VerifyOTP(ctx, contact, bad, otp.PurposeSignIn)
	require.True(t, errx.IsCode(err, otp.CodeInvalidOTP))
	var xerr *errx.Error
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, 1, xerr.Details["attempts_remaining"])

	_, err = svc.VerifyOTP(ctx, contact, bad, otp.PurposeSignIn)
	require.True(t, errx.IsCode(err, otp.CodeInvalidOTP))

	_, err = svc.VerifyOTP(ctx, contact, good, otp.PurposeSignIn)
	assert.True(t, errx.IsCode(err, otp.CodeTooManyAttempts))
}

func TestVerifyOTP_Expired(t *testing.T) {
	svc, _, notifier, clk := newService(config.OTPConfig{TTL: time.Minute})
	ctx := context.Background()

	_, err := svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	_, err = svc.VerifyOTP(ctx, contact, notifier.last(contact), otp.PurposeSignIn)
	assert.True(t, errx.IsCode(err, otp.CodeOTPExpired))
}

func TestVerifyOTP_ReplayWithinGrace(t *testing.T) {
	svc, _, notifier, clk := newService(config.OTPConfig{ReplayGrace: time.Minute})
	ctx := context.Background()

	_, err := svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)
	code := notifier.last(contact)

	first, err := svc.VerifyOTP(ctx, contact, code, otp.PurposeSignIn)
	require.NoError(t, err)

	clk.Advance(30 * time.Second)
	again, err := svc.VerifyOTP(ctx, contact, code, otp.PurposeSignIn)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	clk.Advance(time.Minute)
	_, err = svc.VerifyOTP(ctx, contact, code, otp.PurposeSignIn)
	assert.True(t, errx.IsCode(err, otp.CodeOTPAlreadyUsed))
}

func TestVerifyOTP_SingleUseWithoutGrace(t *testing.T) {
	svc, _, notifier, _ := newService(config.OTPConfig{})
	ctx := context.Background()

	_, err := svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)
	code := notifier.last(contact)

	_, err = svc.VerifyOTP(ctx, contact, code, otp.PurposeSignIn)
	require.NoError(t, err)

	_, err = svc.VerifyOTP(ctx, contact, code, otp.PurposeSignIn)
	assert.True(t, otp.IsCodeRejection(err))
}

func TestVerifyOTP_ConcurrentWrongGuessesRespectLimit(t *testing.T) {
	svc, repo, notifier, _ := newService(config.OTPConfig{MaxAttempts: 5})
	ctx := context.Background()

	_, err := svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)
	good := notifier.last(contact)
	bad := "999999"
	if good == bad {
		bad = "888888"
	}

	var mu sync.Mutex
	outcomes := map[string]int{}
	var wg sync.WaitGroup
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.VerifyOTP(ctx, contact, bad, otp.PurposeSignIn)
			mu.Lock()
			outcomes[errx.CodeOf(err)]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, outcomes[otp.CodeInvalidOTP.Code], "only MaxAttempts guesses reach the hash")
	assert.Equal(t, 35, outcomes[otp.CodeTooManyAttempts.Code])

	stored, err := repo.GetLatest(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Attempts)

	_, err = svc.VerifyOTP(ctx, contact, good, otp.PurposeSignIn)
	assert.True(t, errx.IsCode(err, otp.CodeTooManyAttempts))
}

// resendingRepo issues a new code between a verification's read and its
// write, the way a resend request on another connection would.
type resendingRepo struct {
	otp.Repository
	once   sync.Once
	resend func()
}

func (r *resendingRepo) ClaimAttempt(ctx context.Context, o *otp.OTP) (int, error) {
	r.once.Do(r.resend)
	return r.Repository.ClaimAttempt(ctx, o)
}

func TestVerifyOTP_ResendDuringWrongGuessKeepsNewestCode(t *testing.T) {
	inner := otpinfra.NewInMemoryOTPRepository()
	repo := &resendingRepo{Repository: inner}
	notifier := newFakeNotifier()
	svc := otpsrv.NewOTPService(repo, notifier, config.OTPConfig{BcryptCost: bcrypt.MinCost})
	ctx := context.Background()

	_, err := svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)
	stale := notifier.last(contact)

	var newest string
	repo.resend = func() {
		_, err := svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
		require.NoError(t, err)
		newest = notifier.last(contact)
	}

	bad := "000000"
	if stale == bad {
		bad = "111111"
	}
	_, err = svc.VerifyOTP(ctx, contact, bad, otp.PurposeSignIn)
	assert.True(t, errx.IsCode(err, otp.CodeInvalidOTP))

	stored, err := inner.GetLatest(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)
	assert.Zero(t, stored.Attempts, "the stale verification leaves the new code untouched")

	_, err = svc.VerifyOTP(ctx, contact, newest, otp.PurposeSignIn)
	assert.NoError(t, err)
}

func TestVerifyOTP_ConcurrentCorrectCodesWithoutGrace(t *testing.T) {
	svc, _, notifier, _ := newService(config.OTPConfig{})
	ctx := context.Background()

	_, err := svc.GenerateOTP(ctx, contact, otp.PurposeSignIn)
	require.NoError(t, err)
	code := notifier.last(contact)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.VerifyOTP(ctx, contact, code, otp.PurposeSignIn); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load(), "a single-use code verifies once")
}
