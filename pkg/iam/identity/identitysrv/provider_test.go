package identitysrv_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/relay/pkg/config"
	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/iam/identity"
	"github.com/Abraxas-365/relay/pkg/iam/identity/identityinfra"
	"github.com/Abraxas-365/relay/pkg/iam/identity/identitysrv"
	"github.com/Abraxas-365/relay/pkg/iam/otp/otpinfra"
	"github.com/Abraxas-365/relay/pkg/iam/otp/otpsrv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (i *inbox) SendOTP(_ context.Context, contact, code, _ string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[contact] = code
	return nil
}

func (i *inbox) code(contact string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.codes[contact]
}

type fixture struct {
	provider   *identitysrv.OTPProvider
	identities *identityinfra.InMemoryIdentityRepository
	sessions   *identityinfra.InMemorySessionRepository
	inbox      *inbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	identities := identityinfra.NewInMemoryIdentityRepository()
	sessions := identityinfra.NewInMemorySessionRepository()
	box := &inbox{codes: make(map[string]string)}
	otps := otpsrv.NewOTPService(otpinfra.NewInMemoryOTPRepository(), box, config.OTPConfig{
		BcryptCost:  bcrypt.MinCost,
		ReplayGrace: time.Minute,
	})
	tokens := identity.NewJWTService("test-secret", "relay-test")
	return &fixture{
		provider:   identitysrv.NewOTPProvider(identities, otps, sessions, tokens, time.Hour),
		identities: identities,
		sessions:   sessions,
		inbox:      box,
	}
}

func TestDispatchCode_UnknownEmailWithoutCreate(t *testing.T) {
	f := newFixture(t)

	err := f.provider.DispatchCode(context.Background(), "nobody@co.com", identity.DispatchOptions{})

	assert.True(t, errx.IsCode(err, identity.CodeIdentityNotFound))
	assert.Empty(t, f.inbox.code("nobody@co.com"))
}

func TestDispatchCode_CreatesIdentityWithMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.provider.DispatchCode(ctx, "A@Co.com", identity.DispatchOptions{
		CreateIfMissing: true,
		Metadata:        identity.Metadata{"full_name": "Ada"},
	})
	require.NoError(t, err)

	ident, err := f.identities.FindByEmail(ctx, "a@co.com")
	require.NoError(t, err)
	require.NotNil(t, ident)
	assert.Equal(t, "Ada", ident.Metadata["full_name"])
	assert.False(t, ident.EmailVerified)
	assert.NotEmpty(t, f.inbox.code("a@co.com"))
}

func TestDispatchCode_ReusesIdentityAndReplacesMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.provider.DispatchCode(ctx, "a@co.com", identity.DispatchOptions{
		CreateIfMissing: true,
		Metadata:        identity.Metadata{"full_name": "Ada"},
	}))
	first, _ := f.identities.FindByEmail(ctx, "a@co.com")

	require.NoError(t, f.provider.DispatchCode(ctx, "a@co.com", identity.DispatchOptions{
		CreateIfMissing: true,
		Metadata:        identity.Metadata{"full_name": "Ada Lovelace"},
	}))
	second, _ := f.identities.FindByEmail(ctx, "a@co.com")

	assert.Equal(t, first.SubjectID, second.SubjectID)
	assert.Equal(t, "Ada Lovelace", second.Metadata["full_name"])
}

func TestVerifyCode_OpensSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.provider.DispatchCode(ctx, "a@co.com", identity.DispatchOptions{CreateIfMissing: true}))

	v, err := f.provider.VerifyCode(ctx, "a@co.com", f.inbox.code("a@co.com"))
	require.NoError(t, err)
	assert.True(t, v.Identity.EmailVerified)
	assert.NotEmpty(t, v.SessionToken)

	current, err := f.provider.CurrentSession(ctx, v.SessionToken)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, v.Identity.SubjectID, current.SubjectID)
}

func TestVerifyCode_WrongCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.provider.DispatchCode(ctx, "a@co.com", identity.DispatchOptions{CreateIfMissing: true}))
	wrong := "000000"
	if f.inbox.code("a@co.com") == wrong {
		wrong = "111111"
	}

	_, err := f.provider.VerifyCode(ctx, "a@co.com", wrong)
	assert.True(t, errx.IsCode(err, identity.CodeInvalidCode))
	assert.Equal(t, 0, f.sessions.Len())
}

func TestVerifyCode_WithoutDispatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.provider.VerifyCode(context.Background(), "a@co.com", "123456")
	assert.True(t, errx.IsCode(err, identity.CodeInvalidCode))
}

func TestVerifyCode_ReplayWithinGraceOpensAnotherSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.provider.DispatchCode(ctx, "a@co.com", identity.DispatchOptions{CreateIfMissing: true}))
	code := f.inbox.code("a@co.com")

	first, err := f.provider.VerifyCode(ctx, "a@co.com", code)
	require.NoError(t, err)
	second, err := f.provider.VerifyCode(ctx, "a@co.com", code)
	require.NoError(t, err)

	assert.Equal(t, first.Identity.SubjectID, second.Identity.SubjectID)
	assert.NotEqual(t, first.SessionToken, second.SessionToken)
}

func TestCurrentSession_NoTokenOrGarbage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ident, err := f.provider.CurrentSession(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, ident)

	ident, err = f.provider.CurrentSession(ctx, "not-a-jwt")
	assert.NoError(t, err)
	assert.Nil(t, ident)
}

func TestEndSession_RevokesAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.provider.DispatchCode(ctx, "a@co.com", identity.DispatchOptions{CreateIfMissing: true}))
	v, err := f.provider.VerifyCode(ctx, "a@co.com", f.inbox.code("a@co.com"))
	require.NoError(t, err)

	require.NoError(t, f.provider.EndSession(ctx, v.SessionToken))
	require.NoError(t, f.provider.EndSession(ctx, v.SessionToken))
	require.NoError(t, f.provider.EndSession(ctx, ""))

	current, err := f.provider.CurrentSession(ctx, v.SessionToken)
	assert.NoError(t, err)
	assert.Nil(t, current)
}
