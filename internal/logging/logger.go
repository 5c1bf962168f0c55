// Package logging builds the process logger and records replayed decisions
// in SQLite.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// #region logger
// Options configures NewLogger.
type Options struct {
	Level  string // debug | info | warn | error
	Format string // text | json
	Writer io.Writer
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(v string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", v)
}

// NewLogger returns a slog logger writing to opts.Writer, or stderr.
func NewLogger(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	hopts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		h = slog.NewTextHandler(w, hopts)
	case "json":
		h = slog.NewJSONHandler(w, hopts)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	return slog.New(h), nil
}

// #endregion logger
