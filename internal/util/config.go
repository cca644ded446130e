package util

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreFile     = "file"
	StoreMemory   = "memory"
)

// Config holds runtime settings and flags.
type Config struct {
	SeedText          string        `env:"LIFESWIPE_SEED"`
	DSN               string        `env:"DATABASE_URL"`
	Store             string        `env:"LIFESWIPE_STORE"               envDefault:"sqlite"`
	SavePath          string        `env:"LIFESWIPE_SAVE_PATH"           envDefault:"lifeswipe.db"`
	CatalogPath       string        `env:"LIFESWIPE_CATALOG"`
	TotalCardCount    int           `env:"LIFESWIPE_TOTAL_CARD_COUNT"    envDefault:"158"`
	FinalCardProgress float64       `env:"LIFESWIPE_FINAL_CARD_PROGRESS" envDefault:"100"`
	RestartDelay      time.Duration `env:"LIFESWIPE_RESTART_DELAY"       envDefault:"5s"`
	FeedMode          string        `env:"LIFESWIPE_FEED_MODE"           envDefault:"shuffle"` // shuffle|loop|once
	Theme             string        `env:"LIFESWIPE_THEME"               envDefault:"dusk"`
	LogFile           string        `env:"LIFESWIPE_LOG_FILE"            envDefault:"lifeswipe.log"`
	Debug             bool          `env:"LIFESWIPE_DEBUG"`
	// RulesVersion is set by the binary and salts run seeds.
	RulesVersion string
}

// LoadConfig reads the environment into a Config with defaults applied.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations after flags have been applied.
func (c Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DSN == "" {
			return fmt.Errorf("store %q requires DATABASE_URL or --dsn", c.Store)
		}
	case StoreSQLite, StoreFile:
		if c.SavePath == "" {
			return fmt.Errorf("store %q requires a save path", c.Store)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (postgres|sqlite|file|memory)", c.Store)
	}
	if c.TotalCardCount <= 0 {
		return fmt.Errorf("total card count must be positive, got %d", c.TotalCardCount)
	}
	if c.RestartDelay < 0 {
		return fmt.Errorf("restart delay must not be negative, got %s", c.RestartDelay)
	}
	switch c.FeedMode {
	case "shuffle", "loop", "once":
	default:
		return fmt.Errorf("unknown feed mode %q (shuffle|loop|once)", c.FeedMode)
	}
	return nil
}
