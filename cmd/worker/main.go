package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/interaction-relay/internal/config"
	"github.com/jwebster45206/interaction-relay/internal/executor"
	"github.com/jwebster45206/interaction-relay/internal/logger"
	"github.com/jwebster45206/interaction-relay/internal/services"
	"github.com/jwebster45206/interaction-relay/internal/worker"
)

// The worker stands in for the encounter spawner: it advertises readiness
// and logs every behavior command it receives.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Interaction Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL)

	redisService, err := services.NewRedisService(cfg.RedisURL, log)
	if err != nil {
		log.Error("Invalid Redis configuration", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisService.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := redisService.WaitForConnection(ctx); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	handle := func(_ context.Context, cmd executor.Command) error {
		log.Info("Behavior command executed",
			"profile_ids", cmd.ProfileIDs,
			"owner_id", cmd.OwnerID,
			"position", cmd.Position.String(),
			"radius", cmd.Radius,
			"issued_at", cmd.IssuedAt)
		return nil
	}

	w := worker.New(redisService.GetClient(), handle, logger.WithComponent(log, "worker"), cfg.WorkerID)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for commands...", "worker_id", w.ID())

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	log.Info("Worker exited")
}
