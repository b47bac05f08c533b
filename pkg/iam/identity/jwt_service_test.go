package identity_test

import (
	"testing"
	"time"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/iam/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(now time.Time, ttl time.Duration) identity.Session {
	return identity.Session{
		ID:        "sess-1",
		SubjectID: "sub-1",
		Email:     "a@co.com",
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := identity.NewJWTService("secret", "relay-test")
	now := time.Now().Truncate(time.Second)

	token, err := svc.IssueSessionToken(testSession(now, time.Hour))
	require.NoError(t, err)

	claims, err := svc.ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "sub-1", claims.SubjectID.String())
	assert.Equal(t, "a@co.com", claims.Email)
	assert.WithinDuration(t, now.Add(time.Hour), claims.ExpiresAt, time.Second)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := identity.NewJWTService("secret", "relay-test")
	past := time.Now().Add(-2 * time.Hour)

	token, err := svc.IssueSessionToken(testSession(past, time.Hour))
	require.NoError(t, err)

	_, err = svc.ValidateSessionToken(token)
	assert.True(t, errx.IsCode(err, identity.CodeTokenValidationFailed))
}

func TestJWTService_RejectsForeignSignature(t *testing.T) {
	issuer := identity.NewJWTService("secret-a", "relay-test")
	verifier := identity.NewJWTService("secret-b", "relay-test")

	token, err := issuer.IssueSessionToken(testSession(time.Now(), time.Hour))
	require.NoError(t, err)

	_, err = verifier.ValidateSessionToken(token)
	assert.True(t, errx.IsCode(err, identity.CodeTokenValidationFailed))
}

func TestJWTService_RejectsOtherIssuer(t *testing.T) {
	a := identity.NewJWTService("secret", "issuer-a")
	b := identity.NewJWTService("secret", "issuer-b")

	token, err := a.IssueSessionToken(testSession(time.Now(), time.Hour))
	require.NoError(t, err)

	_, err = b.ValidateSessionToken(token)
	assert.Error(t, err)
}

func TestMetadata_ScanAndValue(t *testing.T) {
	in := identity.Metadata{"full_name": "Ada", "create_company": true}
	v, err := in.Value()
	require.NoError(t, err)

	var out identity.Metadata
	require.NoError(t, out.Scan(v))
	assert.Equal(t, "Ada", out["full_name"])
	assert.Equal(t, true, out["create_company"])

	var empty identity.Metadata
	require.NoError(t, empty.Scan(nil))
	assert.NotNil(t, empty)
	assert.Error(t, empty.Scan(42))
}
