// Package config reads process configuration from the environment, then
// lets command-line flags override it.
package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/caarlos0/env/v11"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/corpus"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/logging"
)

// Config holds settings shared by every command.
type Config struct {
	DB        string `env:"ACTIVITY_DB"         envDefault:"activity_states.db"`
	Patterns  string `env:"ACTIVITY_PATTERNS"`
	Tier      string `env:"ACTIVITY_TIER"       envDefault:"all"`
	Committee string `env:"ACTIVITY_COMMITTEE"  envDefault:"STANDARD CP"`
	LogLevel  string `env:"ACTIVITY_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"ACTIVITY_LOG_FORMAT" envDefault:"text"`
}

// Parse loads the environment, registers the shared flags on fs, and parses
// args. Commands register their own flags on fs before calling Parse.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.DB, "db", cfg.DB, "SQLite database path")
	fs.StringVar(&cfg.Patterns, "patterns", cfg.Patterns, "pattern CSV path(s), comma separated")
	fs.StringVar(&cfg.Tier, "tier", cfg.Tier, "strictness tier: top75, top150 or all")
	fs.StringVar(&cfg.Committee, "committee", cfg.Committee, "committee: STANDARD CP, EE or DENTIST")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every enumerated setting.
func (c Config) Validate() error {
	if _, err := gate.ParseTier(c.Tier); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := catalog.ParseCommittee(c.Committee); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	return nil
}

// GateTier returns the configured tier. Call only on a validated config.
func (c Config) GateTier() gate.Tier {
	t, err := gate.ParseTier(c.Tier)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultCommittee returns the configured committee. Call only on a
// validated config.
func (c Config) DefaultCommittee() catalog.Committee {
	cm, err := catalog.ParseCommittee(c.Committee)
	if err != nil {
		panic(err)
	}
	return cm
}

// PatternPaths splits Patterns into individual paths.
func (c Config) PatternPaths() []string {
	return corpus.SplitPaths(c.Patterns)
}

// Logger builds the process logger writing to w.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	return logging.NewLogger(logging.Options{Level: c.LogLevel, Format: c.LogFormat, Writer: w})
}
