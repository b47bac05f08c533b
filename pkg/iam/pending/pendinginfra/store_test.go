package pendinginfra_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/relay/pkg/iam/pending"
	"github.com/Abraxas-365/relay/pkg/iam/pending/pendinginfra"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/Abraxas-365/relay/pkg/ptrx"
	"github.com/Abraxas-365/relay/pkg/testx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, pendinginfra.NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	runStoreContract(t, pendinginfra.NewRedisStore(testx.Redis(t), time.Minute))
}

func runStoreContract(t *testing.T, store pending.Store) {
	ctx := context.Background()
	device := kernel.NewDeviceID("device-1")
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("empty slot", func(t *testing.T) {
		got, err := store.Get(ctx, kernel.NewDeviceID("nobody"))
		require.NoError(t, err)
		assert.Nil(t, got)

		assert.NoError(t, store.Delete(ctx, kernel.NewDeviceID("nobody")))

		hint, err := store.GetRedirect(ctx, kernel.NewDeviceID("nobody"))
		require.NoError(t, err)
		assert.Empty(t, hint)
	})

	t.Run("put overwrites", func(t *testing.T) {
		signup := pending.NewSignupIntent(pending.SignupIntent{
			Email:    "Ada@Example.com",
			FullName: "Ada",
			Phone:    ptrx.String("+16502530000"),
		}, now)
		require.NoError(t, store.Put(ctx, device, signup))

		got, err := store.Get(ctx, device)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, pending.IntentKindSignup, got.Kind)
		assert.Equal(t, "ada@example.com", got.Email)
		require.NotNil(t, got.Signup)
		assert.Equal(t, "+16502530000", *got.Signup.Phone)

		require.NoError(t, store.Put(ctx, device, pending.NewLoginIntent("grace@example.com", now)))
		got, err = store.Get(ctx, device)
		require.NoError(t, err)
		assert.Equal(t, pending.IntentKindLogin, got.Kind)
		assert.Nil(t, got.Signup)
	})

	t.Run("redirect hint is independent", func(t *testing.T) {
		require.NoError(t, store.PutRedirect(ctx, device, "/dashboard"))
		require.NoError(t, store.Delete(ctx, device))

		hint, err := store.GetRedirect(ctx, device)
		require.NoError(t, err)
		assert.Equal(t, "/dashboard", hint)

		require.NoError(t, store.DeleteRedirect(ctx, device))
		hint, err = store.GetRedirect(ctx, device)
		require.NoError(t, err)
		assert.Empty(t, hint)
	})
}
