// Package testx starts throwaway Postgres and Redis containers for
// integration tests. Tests using it are skipped unless RELAY_INTEGRATION=1.
package testx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Abraxas-365/relay/pkg/dbx"
	"github.com/docker/go-connections/nat"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const startTimeout = 60 * time.Second

// RequireIntegration skips t unless RELAY_INTEGRATION=1.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("RELAY_INTEGRATION") != "1" {
		t.Skip("set RELAY_INTEGRATION=1 to run container-backed tests")
	}
}

// Postgres starts postgres, applies the migrations and returns a connected
// pool. The container is terminated when t finishes.
func Postgres(t *testing.T) *sqlx.DB {
	t.Helper()
	RequireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	host, port := start(ctx, t, testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "relay",
			"POSTGRES_PASSWORD": "relay",
			"POSTGRES_DB":       "relay",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(startTimeout),
	}, "5432/tcp")

	dsn := fmt.Sprintf("host=%s port=%s user=relay password=relay dbname=relay sslmode=disable", host, port)
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, dbx.Reset(db.DB, "file://"+migrationsDir()))
	return db
}

// Redis starts redis and returns a client bound to it.
func Redis(t *testing.T) *redis.Client {
	t.Helper()
	RequireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	host, port := start(ctx, t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}, "6379/tcp")

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func start(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest, exposed string) (string, string) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, nat.Port(exposed))
	require.NoError(t, err)

	return host, port.Port()
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
