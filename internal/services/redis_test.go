package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func TestRedisService_URLAndAddress(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	for _, addr := range []string{"redis://" + mr.Addr() + "/0", mr.Addr()} {
		svc, err := NewRedisService(addr, testLogger())
		require.NoError(t, err)

		assert.NoError(t, svc.Ping(ctx), addr)
		assert.NoError(t, svc.WaitForConnection(ctx), addr)
		assert.NotNil(t, svc.GetClient())
		assert.NoError(t, svc.Close())
	}
}

func TestRedisService_InvalidURL(t *testing.T) {
	_, err := NewRedisService("http://localhost:6379", testLogger())
	assert.Error(t, err)
}

func TestRedisService_WaitForConnectionGivesUp(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	svc, err := NewRedisService(addr, testLogger())
	require.NoError(t, err)
	defer svc.Close()

	svc.MaxRetries = 2
	svc.RetryDelay = 10 * time.Millisecond

	err = svc.WaitForConnection(context.Background())
	assert.ErrorContains(t, err, "did not become available after 2 attempts")
}

func TestRedisService_WaitForConnectionCancelled(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	svc, err := NewRedisService(addr, testLogger())
	require.NoError(t, err)
	defer svc.Close()

	svc.RetryDelay = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = svc.WaitForConnection(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
