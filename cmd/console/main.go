package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/interaction-relay/internal/config"
	"github.com/jwebster45206/interaction-relay/internal/executor"
	"github.com/jwebster45206/interaction-relay/internal/logger"
	"github.com/jwebster45206/interaction-relay/internal/services"
	"github.com/jwebster45206/interaction-relay/internal/session"
	"github.com/jwebster45206/interaction-relay/internal/sources"
	"github.com/jwebster45206/interaction-relay/internal/transport"
	"github.com/jwebster45206/interaction-relay/pkg/relay"
)

const notificationBuffer = 64

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// The UI owns the terminal, so logs go to a file.
	logPath := filepath.Join(os.TempDir(), "interaction-console.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not open log file: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logFile.Close() // Ignore error in defer
	}()
	log := logger.New(cfg, logFile)

	redisService, err := services.NewRedisService(cfg.RedisURL, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid Redis configuration: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = redisService.Close() // Ignore error in defer
	}()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := redisService.Ping(pingCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to Redis at %s. Please ensure it is running.\nTry: docker-compose up -d\n", cfg.RedisURL)
		os.Exit(1)
	}

	srcs, err := sources.LoadDir(cfg.ModsDir, cfg.ConfigRelativePath, logger.WithComponent(log, "sources"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load interaction configs: %v\n", err)
		os.Exit(1)
	}

	st := &station{
		antennaID:    cfg.AntennaID,
		ownerID:      cfg.AntennaOwnerID,
		position:     relay.Vec3{X: cfg.ObserverX, Y: cfg.ObserverY, Z: cfg.ObserverZ},
		radius:       cfg.AntennaRadius,
		broadcasting: true,
	}

	notes := make(chan session.Notification, notificationBuffer)
	client := redisService.GetClient()

	sess := session.New(session.Options{
		Transport:     transport.NewRedisTransport(client, cfg.SessionName, cfg.Authority, logger.WithComponent(log, "transport")),
		Executor:      executor.NewRedisExecutor(client, logger.WithComponent(log, "executor")),
		Observer:      st,
		Identities:    session.Identities{cfg.AntennaOwnerID: cfg.DisplayName},
		ParticipantID: cfg.ParticipantID,
		StrictIDs:     cfg.StrictIDs,
		Logger:        logger.WithComponent(log, "session"),
		Notifier: session.NotifierFunc(func(_ context.Context, n session.Notification) {
			select {
			case notes <- n:
			default:
				log.Warn("Console is not keeping up, dropping radio call", "sender_name", n.SenderName)
			}
		}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rejections, err := sess.Start(ctx, srcs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to join session %s: %v\n", cfg.SessionName, err)
		os.Exit(1)
	}
	defer sess.Stop()

	p := tea.NewProgram(NewConsoleUI(sess, st, notes, rejections), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
