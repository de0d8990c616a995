package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisTransport relays payloads over Redis Pub/Sub. Requests go to the
// session's authority channel; the authority republishes them on the
// session's everyone channel.
type RedisTransport struct {
	client    *redis.Client
	session   string
	authority bool
	logger    *slog.Logger
}

// Ensure RedisTransport implements Transport interface
var _ Transport = (*RedisTransport)(nil)

// NewRedisTransport creates a transport for one participant of a session.
func NewRedisTransport(client *redis.Client, session string, authority bool, logger *slog.Logger) *RedisTransport {
	return &RedisTransport{
		client:    client,
		session:   session,
		authority: authority,
		logger:    logger,
	}
}

func authorityChannel(session string) string {
	return fmt.Sprintf("interactions:%s:authority", session)
}

func everyoneChannel(session string) string {
	return fmt.Sprintf("interactions:%s:everyone", session)
}

func (t *RedisTransport) IsAuthority() bool {
	return t.authority
}

func (t *RedisTransport) SendToAuthority(ctx context.Context, payload []byte) error {
	return t.publish(ctx, authorityChannel(t.session), payload)
}

func (t *RedisTransport) Broadcast(ctx context.Context, payload []byte) error {
	return t.publish(ctx, everyoneChannel(t.session), payload)
}

func (t *RedisTransport) publish(ctx context.Context, channel string, payload []byte) error {
	receivers, err := t.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		t.logger.Error("Failed to publish relay payload", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish relay payload: %w", err)
	}

	t.logger.Debug("Relay payload published",
		"channel", channel,
		"bytes", len(payload),
		"receivers", receivers)

	if receivers == 0 && channel == authorityChannel(t.session) {
		return ErrNoAuthority
	}
	return nil
}

// Subscribe blocks until Redis confirms the subscription, then delivers
// messages on a background goroutine until ctx is done or the
// subscription is closed.
func (t *RedisTransport) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	channel := everyoneChannel(t.session)
	if t.authority {
		channel = authorityChannel(t.session)
	}

	pubsub := t.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	t.logger.Info("Subscribed to relay channel", "channel", channel)

	sub := &redisSubscription{pubsub: pubsub, done: make(chan struct{})}
	go sub.run(ctx, t, h)
	return sub, nil
}

func (t *RedisTransport) Close() error {
	if err := t.client.Close(); err != nil {
		t.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	t.logger.Info("Redis connection closed")
	return nil
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSubscription) run(ctx context.Context, t *RedisTransport, h Handler) {
	defer close(s.done)

	msgChan := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			payload := []byte(msg.Payload)
			if h(ctx, payload) == RelayToEveryone && t.authority {
				if err := t.Broadcast(ctx, payload); err != nil {
					t.logger.Error("Failed to relay payload to everyone", "error", err)
				}
			}
		}
	}
}

func (s *redisSubscription) Done() <-chan struct{} {
	return s.done
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}
