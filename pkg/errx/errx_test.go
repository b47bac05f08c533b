package errx_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRegistry = errx.NewRegistry("TEST")

	codeMissing = testRegistry.Register("MISSING", errx.TypeNotFound, http.StatusNotFound, "Thing not found")
	codeBroken  = testRegistry.Register("BROKEN", errx.TypeExternal, http.StatusBadGateway, "Upstream broke")
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, "TEST_MISSING", codeMissing.Code)

	got, ok := testRegistry.Get("MISSING")
	require.True(t, ok)
	assert.Same(t, codeMissing, got)

	codes := testRegistry.Codes()
	assert.Len(t, codes, 2)
	delete(codes, "MISSING")
	_, ok = testRegistry.Get("MISSING")
	assert.True(t, ok, "Codes returns a copy")
}

func TestIsCode_FollowsWrapChain(t *testing.T) {
	base := testRegistry.New(codeMissing).WithDetail("id", "42")
	wrapped := fmt.Errorf("lookup: %w", errx.Wrap(base, "lookup failed", errx.TypeNotFound))

	assert.True(t, errx.IsCode(wrapped, codeMissing))
	assert.False(t, errx.IsCode(wrapped, codeBroken))
	assert.False(t, errx.IsCode(nil, codeMissing))

	assert.True(t, errors.Is(wrapped, testRegistry.New(codeMissing)))
	assert.Equal(t, "TEST_MISSING", errx.CodeOf(wrapped))
	assert.Equal(t, http.StatusNotFound, errx.StatusOf(wrapped))
	assert.Equal(t, errx.TypeNotFound, errx.TypeOf(wrapped))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, errx.Wrap(nil, "nothing", errx.TypeInternal))

	foreign := errx.Wrap(errors.New("dial tcp: refused"), "redis down", errx.TypeExternal)
	assert.Equal(t, string(errx.TypeExternal), foreign.Code)
	assert.Equal(t, http.StatusBadGateway, foreign.HTTPStatus)
	assert.Contains(t, foreign.Error(), "refused")

	kept := errx.Wrap(testRegistry.New(codeBroken).WithDetail("host", "ses"), "send failed", errx.TypeExternal)
	assert.Equal(t, codeBroken.Code, kept.Code)
	assert.Equal(t, "ses", kept.Details["host"])
}

func TestForeignErrors(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, errx.StatusOf(err))
	assert.Equal(t, string(errx.TypeInternal), errx.CodeOf(err))
	assert.Equal(t, errx.TypeInternal, errx.TypeOf(err))
	assert.Equal(t, http.StatusOK, errx.StatusOf(nil))
}

func TestNewWithCause(t *testing.T) {
	cause := errors.New("timeout")
	err := testRegistry.NewWithCause(codeBroken, cause).WithDetails(map[string]interface{}{"attempt": 3})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, err.Details["attempt"])
	assert.Equal(t, "TEST_BROKEN", err.Code)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
	assert.Equal(t, http.StatusUnprocessableEntity, errx.TypeBusiness.HTTPStatus())
}
