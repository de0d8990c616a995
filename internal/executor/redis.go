package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ReadyKey    = "executor:ready"
	commandsKey = "behavior-commands"
)

// RedisExecutor queues commands on a Redis list consumed by the external
// spawner. The spawner advertises readiness by keeping ReadyKey alive.
type RedisExecutor struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisExecutor implements Executor interface
var _ Executor = (*RedisExecutor)(nil)

// NewRedisExecutor creates a Redis-backed executor client.
func NewRedisExecutor(client *redis.Client, logger *slog.Logger) *RedisExecutor {
	return &RedisExecutor{
		client: client,
		logger: logger,
	}
}

func (e *RedisExecutor) Ready(ctx context.Context) bool {
	n, err := e.client.Exists(ctx, ReadyKey).Result()
	if err != nil {
		e.logger.Error("Executor readiness check failed", "error", err)
		return false
	}
	return n > 0
}

// MarkReady advertises readiness on behalf of a spawner; ttl 0 never expires.
func (e *RedisExecutor) MarkReady(ctx context.Context, ttl time.Duration) error {
	if err := e.client.Set(ctx, ReadyKey, time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark executor ready: %w", err)
	}
	return nil
}

func (e *RedisExecutor) SendCommand(ctx context.Context, cmd Command) error {
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now().UTC()
	}
	data, err := cmd.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize command: %w", err)
	}

	if err := e.client.RPush(ctx, commandsKey, data).Err(); err != nil {
		e.logger.Error("Failed to enqueue behavior command", "error", err, "profile_ids", cmd.ProfileIDs)
		return fmt.Errorf("failed to enqueue behavior command: %w", err)
	}

	e.logger.Debug("Behavior command enqueued",
		"profile_ids", cmd.ProfileIDs,
		"owner_id", cmd.OwnerID,
		"radius", cmd.Radius)
	return nil
}

// Pending returns the number of commands not yet consumed.
func (e *RedisExecutor) Pending(ctx context.Context) (int, error) {
	count, err := e.client.LLen(ctx, commandsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get command queue depth: %w", err)
	}
	return int(count), nil
}

// Next pops the oldest command, or returns nil when the queue is empty.
func (e *RedisExecutor) Next(ctx context.Context) (*Command, error) {
	result, err := e.client.LPop(ctx, commandsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue command: %w", err)
	}

	cmd, err := CommandFromJSON([]byte(result))
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}
	return cmd, nil
}

// BlockingNext waits up to timeout for a command and returns nil if none arrives.
func (e *RedisExecutor) BlockingNext(ctx context.Context, timeout time.Duration) (*Command, error) {
	result, err := e.client.BLPop(ctx, timeout, commandsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue command: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	cmd, err := CommandFromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}
	return cmd, nil
}

// ClearReady withdraws readiness, e.g. when the spawner shuts down.
func (e *RedisExecutor) ClearReady(ctx context.Context) error {
	if err := e.client.Del(ctx, ReadyKey).Err(); err != nil {
		return fmt.Errorf("failed to clear executor readiness: %w", err)
	}
	return nil
}
