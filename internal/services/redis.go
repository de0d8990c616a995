package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxRetries = 30
	defaultRetryDelay = 2 * time.Second
)

// RedisService owns the Redis client shared by the relay transport and the
// command executor.
type RedisService struct {
	client *redis.Client
	logger *slog.Logger

	MaxRetries int
	RetryDelay time.Duration
}

// Ensure RedisService implements Connection interface
var _ Connection = (*RedisService)(nil)

// NewRedisService creates a new Redis service from a redis:// URL. A bare
// host:port is accepted as well.
func NewRedisService(redisURL string, logger *slog.Logger) (*RedisService, error) {
	var opts *redis.Options
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: redisURL}
	}

	return &RedisService{
		client:     redis.NewClient(opts),
		logger:     logger,
		MaxRetries: defaultMaxRetries,
		RetryDelay: defaultRetryDelay,
	}, nil
}

func (r *RedisService) Ping(ctx context.Context) error {
	cmd := r.client.Ping(ctx)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	r.logger.Debug("Redis ping successful", "result", cmd.Val())
	return nil
}

func (r *RedisService) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}

	r.logger.Info("Redis connection closed")
	return nil
}

func (r *RedisService) GetClient() *redis.Client {
	return r.client
}

func (r *RedisService) WaitForConnection(ctx context.Context) error {
	for i := 0; i < r.MaxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(r.RetryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", r.MaxRetries)
}
