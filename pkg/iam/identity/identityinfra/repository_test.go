package identityinfra_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/iam/identity"
	"github.com/Abraxas-365/relay/pkg/iam/identity/identityinfra"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/Abraxas-365/relay/pkg/testx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdentityRepository(t *testing.T) {
	runIdentityContract(t, identityinfra.NewInMemoryIdentityRepository())
}

func TestPostgresIdentityRepository(t *testing.T) {
	runIdentityContract(t, identityinfra.NewPostgresIdentityRepository(testx.Postgres(t)))
}

func TestInMemorySessionRepository(t *testing.T) {
	runSessionContract(t, identityinfra.NewInMemorySessionRepository())
}

func TestRedisSessionRepository(t *testing.T) {
	runSessionContract(t, identityinfra.NewRedisSessionRepository(testx.Redis(t)))
}

func runIdentityContract(t *testing.T, repo identity.Repository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	subject := kernel.NewSubjectID(uuid.NewString())

	_, err := repo.Create(ctx, identity.Identity{
		SubjectID: subject,
		Email:     "Ada@Relay.test",
		Metadata:  identity.Metadata{"intent": "signup", "full_name": "Ada"},
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)

	t.Run("metadata survives a round trip", func(t *testing.T) {
		got, err := repo.FindByEmail(ctx, "ada@relay.test")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, subject, got.SubjectID)
		assert.False(t, got.EmailVerified)
		assert.Equal(t, "Ada", got.Metadata["full_name"])
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repo.Create(ctx, identity.Identity{
			SubjectID: kernel.NewSubjectID(uuid.NewString()),
			Email:     "ADA@relay.test",
			CreatedAt: now,
			UpdatedAt: now,
		})
		assert.True(t, errx.IsCode(err, identity.CodeIdentityExists))
	})

	t.Run("verify and replace metadata", func(t *testing.T) {
		require.NoError(t, repo.MarkEmailVerified(ctx, subject))
		require.NoError(t, repo.UpdateMetadata(ctx, subject, identity.Metadata{"intent": "login"}))

		got, err := repo.FindByID(ctx, subject)
		require.NoError(t, err)
		assert.True(t, got.EmailVerified)
		assert.Equal(t, "login", got.Metadata["intent"])
		assert.NotContains(t, got.Metadata, "full_name")
	})

	t.Run("unknown identity", func(t *testing.T) {
		got, err := repo.FindByEmail(ctx, "ghost@relay.test")
		require.NoError(t, err)
		assert.Nil(t, got)

		_, err = repo.FindByID(ctx, kernel.NewSubjectID(uuid.NewString()))
		assert.True(t, errx.IsCode(err, identity.CodeIdentityNotFound))
	})
}

func runSessionContract(t *testing.T, repo identity.SessionRepository) {
	ctx := context.Background()
	now := time.Now().UTC()

	live := identity.Session{
		ID:        uuid.NewString(),
		SubjectID: kernel.NewSubjectID("subject-1"),
		Email:     "ada@relay.test",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, repo.Save(ctx, live))

	got, err := repo.Find(ctx, live.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, live.SubjectID, got.SubjectID)

	expired := live
	expired.ID = uuid.NewString()
	expired.ExpiresAt = now.Add(-time.Second)
	_ = repo.Save(ctx, expired)

	got, err = repo.Find(ctx, expired.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "expired sessions are never returned")

	require.NoError(t, repo.Delete(ctx, live.ID))
	got, err = repo.Find(ctx, live.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, repo.Delete(ctx, "unknown"), "deleting an unknown session succeeds")
}
