package worker

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/interaction-relay/internal/executor"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWorker_ProcessesCommands(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	got := make(chan executor.Command, 4)
	w := New(client, func(_ context.Context, cmd executor.Command) error {
		got <- cmd
		return nil
	}, testLogger(), "spawner-1")

	go func() { _ = w.Start() }()

	exec := executor.NewRedisExecutor(client, testLogger())
	assert.Eventually(t, func() bool { return exec.Ready(ctx) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, exec.SendCommand(ctx, executor.Command{ProfileIDs: []string{"Rescue"}, OwnerID: 42}))

	select {
	case cmd := <-got:
		assert.Equal(t, []string{"Rescue"}, cmd.ProfileIDs)
		assert.Equal(t, int64(42), cmd.OwnerID)
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not process the command")
	}

	w.Stop()
	assert.False(t, exec.Ready(ctx), "readiness withdrawn on shutdown")
	assert.Equal(t, int64(0), client.Exists(ctx, leaseKey).Val())
}

func TestWorker_SingleLeaseHolder(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	noop := func(context.Context, executor.Command) error { return nil }

	first := New(client, noop, testLogger(), "first")
	second := New(client, noop, testLogger(), "second")

	go func() { _ = first.Start() }()
	assert.Eventually(t, func() bool {
		return client.Get(ctx, leaseKey).Val() == "first"
	}, 2*time.Second, 10*time.Millisecond)

	go func() { _ = second.Start() }()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "first", client.Get(ctx, leaseKey).Val())

	second.Stop()
	assert.Equal(t, "first", client.Get(ctx, leaseKey).Val(), "standby does not release a lease it never held")

	first.Stop()
	assert.Equal(t, int64(0), client.Exists(ctx, leaseKey).Val())
}

func TestWorker_GeneratedID(t *testing.T) {
	client := setupTestRedis(t)
	w := New(client, nil, testLogger(), "")
	assert.Regexp(t, `^worker-[0-9a-f]{8}$`, w.ID())
}
