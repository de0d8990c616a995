package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/interaction-relay/internal/executor"
	"github.com/jwebster45206/interaction-relay/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	leaseKey     = "executor:lease"
	leaseTTL     = 5 * time.Second
	pollTimeout  = time.Second
	errorBackoff = time.Second
)

// CommandHandler carries out one behavior command.
type CommandHandler func(ctx context.Context, cmd executor.Command) error

// Worker is the spawner side of the command executor boundary. The worker
// holding the lease advertises readiness and drains the command queue;
// other workers stand by until the lease expires.
type Worker struct {
	id          string
	exec        *executor.RedisExecutor
	handle      CommandHandler
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

// New creates a new worker instance
func New(redisClient *redis.Client, handle CommandHandler, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		exec:        executor.NewRedisExecutor(redisClient, log),
		handle:      handle,
		redisClient: redisClient,
		log:         log.With("worker_id", workerID),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

func (w *Worker) ID() string {
	return w.id
}

// Start processes commands until Stop is called.
func (w *Worker) Start() error {
	defer close(w.done)
	w.log.Info("Worker starting")

	for {
		select {
		case <-w.ctx.Done():
			w.shutdown()
			return nil
		default:
			if err := w.step(); err != nil && w.ctx.Err() == nil {
				logger.WithError(w.log, err).Error("Error processing command")
				// Continue processing even on error
				w.sleep(errorBackoff)
			}
		}
	}
}

// Stop gracefully shuts down the worker and waits for Start to return.
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
	<-w.done
}

func (w *Worker) step() error {
	held, err := w.renewLease()
	if err != nil {
		return fmt.Errorf("failed to renew lease: %w", err)
	}
	if !held {
		w.log.Debug("Another worker holds the executor lease")
		w.sleep(pollTimeout)
		return nil
	}

	if err := w.exec.MarkReady(w.ctx, leaseTTL); err != nil {
		return err
	}

	cmd, err := w.exec.BlockingNext(w.ctx, pollTimeout)
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}

	w.log.Info("Processing behavior command",
		"profile_ids", cmd.ProfileIDs,
		"owner_id", cmd.OwnerID,
		"position", cmd.Position.String(),
		"radius", cmd.Radius)

	if err := w.handle(w.ctx, *cmd); err != nil {
		return fmt.Errorf("command %v failed: %w", cmd.ProfileIDs, err)
	}
	return nil
}

// renewLease acquires the lease or extends it if this worker already holds it.
func (w *Worker) renewLease() (bool, error) {
	ok, err := w.redisClient.SetNX(w.ctx, leaseKey, w.id, leaseTTL).Result()
	if err != nil {
		return false, err
	}
	if ok {
		w.log.Info("Acquired executor lease")
		return true, nil
	}

	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
	n, err := script.Run(w.ctx, w.redisClient, []string{leaseKey}, w.id, leaseTTL.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// shutdown releases the lease and readiness if this worker owns them.
func (w *Worker) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Only delete if we own the lease
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			redis.call("del", KEYS[2])
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	released, err := script.Run(ctx, w.redisClient, []string{leaseKey, executor.ReadyKey}, w.id).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		w.log.Error("Failed to release executor lease", "error", err)
		return
	}
	w.log.Info("Worker shutting down", "released_lease", released == 1)
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.ctx.Done():
	case <-time.After(d):
	}
}
