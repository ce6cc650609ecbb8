package logger

import (
	"log/slog"
	"os"
)

// NewTestLogger returns a WARN-level text logger on stderr.
// TEST_LOG_LEVEL (debug, info, warn, error) raises or lowers the level;
// TEST_DEBUG=1 is kept as a shortcut for debug.
func NewTestLogger() *slog.Logger {
	cfg := Config{Level: slog.LevelWarn, Format: "text"}
	if v := os.Getenv("TEST_LOG_LEVEL"); v != "" {
		cfg.Level = ParseLevel(v)
	}
	if os.Getenv("TEST_DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return slog.New(newHandler(cfg, os.Stderr))
}
