package runlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) (*RedisLocker, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	locker, err := NewRedisLocker(ctx, endpoint, "", 0, "test:lock:")
	require.NoError(t, err)

	return locker, func() {
		locker.Close()
		_ = container.Terminate(ctx)
	}
}

func TestRedisLocker(t *testing.T) {
	l, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	key := Key("monthly", "2024-06")

	require.NoError(t, l.Acquire(ctx, key, time.Minute))
	if err := l.Acquire(ctx, key, time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
	require.NoError(t, l.Release(ctx, key))
	require.NoError(t, l.Acquire(ctx, key, time.Minute))
	require.NoError(t, l.Release(ctx, key))
}
