package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog installs the default logger. Verbose mode drops the level
// down to debug.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
