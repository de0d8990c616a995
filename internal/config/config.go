package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/jwebster45206/interaction-relay/pkg/relay"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level

	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	SessionName string `env:"SESSION_NAME" envDefault:"default"`

	// Authority marks the single participant that runs behavior commands
	// and relays messages to everyone else.
	Authority     bool   `env:"AUTHORITY" envDefault:"false"`
	ParticipantID string `env:"PARTICIPANT_ID"`
	DisplayName   string `env:"DISPLAY_NAME" envDefault:"Nobody"`
	WorkerID      string `env:"WORKER_ID"`

	ModsDir            string `env:"MODS_DIR" envDefault:"./mods"`
	ConfigRelativePath string `env:"CONFIG_RELATIVE_PATH" envDefault:"data/MESInteractions_Config.xml"`
	StrictIDs          bool   `env:"INTERACTIONS_STRICT_IDS" envDefault:"false"`

	// Observer position of the local player, if any.
	ObserverEnabled bool    `env:"OBSERVER_ENABLED" envDefault:"false"`
	ObserverX       float64 `env:"OBSERVER_X"`
	ObserverY       float64 `env:"OBSERVER_Y"`
	ObserverZ       float64 `env:"OBSERVER_Z"`

	// Console antenna
	AntennaID      int64   `env:"ANTENNA_ID" envDefault:"1"`
	AntennaOwnerID int64   `env:"ANTENNA_OWNER_ID" envDefault:"1"`
	AntennaRadius  float32 `env:"ANTENNA_RADIUS" envDefault:"5000"`
}

// Load reads configuration from the environment, after merging an optional .env file.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)

	if strings.TrimSpace(cfg.SessionName) == "" {
		return nil, fmt.Errorf("SESSION_NAME must not be blank")
	}
	if cfg.AntennaRadius < 0 {
		return nil, fmt.Errorf("ANTENNA_RADIUS must not be negative, got %v", cfg.AntennaRadius)
	}

	return cfg, nil
}

// ObserverPosition returns the configured local observer position, if enabled.
func (c *Config) ObserverPosition() (relay.Vec3, bool) {
	if !c.ObserverEnabled {
		return relay.Vec3{}, false
	}
	return relay.Vec3{X: c.ObserverX, Y: c.ObserverY, Z: c.ObserverZ}, true
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
