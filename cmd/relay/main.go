package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/interaction-relay/internal/config"
	"github.com/jwebster45206/interaction-relay/internal/executor"
	"github.com/jwebster45206/interaction-relay/internal/handlers"
	"github.com/jwebster45206/interaction-relay/internal/logger"
	"github.com/jwebster45206/interaction-relay/internal/middleware"
	"github.com/jwebster45206/interaction-relay/internal/services"
	"github.com/jwebster45206/interaction-relay/internal/session"
	"github.com/jwebster45206/interaction-relay/internal/sources"
	"github.com/jwebster45206/interaction-relay/internal/transport"
	"github.com/jwebster45206/interaction-relay/pkg/relay"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Interaction Relay",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"session", cfg.SessionName,
		"authority", cfg.Authority)

	redisService, err := services.NewRedisService(cfg.RedisURL, log)
	if err != nil {
		log.Error("Invalid Redis configuration", "error", err)
		os.Exit(1)
	}
	connCtx, connCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer connCancel()

	if err := redisService.WaitForConnection(connCtx); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	client := redisService.GetClient()

	exec := executor.NewRedisExecutor(client, logger.WithComponent(log, "executor"))
	relayTransport := transport.NewRedisTransport(client, cfg.SessionName, cfg.Authority, logger.WithComponent(log, "transport"))

	srcs, err := sources.LoadDir(cfg.ModsDir, cfg.ConfigRelativePath, logger.WithComponent(log, "sources"))
	if err != nil {
		log.Error("Failed to load interaction configs", "error", err, "mods_dir", cfg.ModsDir)
		os.Exit(1)
	}

	opts := session.Options{
		Transport:     relayTransport,
		Executor:      exec,
		Identities:    session.Identities{cfg.AntennaOwnerID: cfg.DisplayName},
		ParticipantID: cfg.ParticipantID,
		StrictIDs:     cfg.StrictIDs,
		Logger:        logger.WithComponent(log, "session"),
		Notifier: session.NotifierFunc(func(_ context.Context, n session.Notification) {
			log.Info("Radio call received",
				"sender_name", n.SenderName,
				"text", n.Text,
				"distance", n.Distance)
		}),
	}
	if pos, ok := cfg.ObserverPosition(); ok {
		opts.Observer = session.ObserverFunc(func() (relay.Vec3, bool) { return pos, true })
	}

	sess := session.New(opts)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	rejections, err := sess.Start(runCtx, srcs)
	if err != nil {
		log.Error("Failed to start session", "error", err)
		os.Exit(1)
	}
	for _, r := range rejections {
		log.Warn("Interaction config problem", "rejection", r.String())
	}

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(redisService, exec, log))
	mux.Handle("/v1/interactions", handlers.NewInteractionsHandler(sess, log))
	mux.Handle("/v1/trigger", handlers.NewTriggerHandler(sess, log))
	mux.Handle("/v1/devices/", handlers.NewSelectionHandler(sess, log))
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Logger(log, mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal or lost relay subscription
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-sess.Done():
		log.Error("Relay subscription ended unexpectedly")
	}

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	sess.Stop()
	runCancel()

	if err := redisService.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	log.Info("Server exited")
}
