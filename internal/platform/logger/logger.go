package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Level defaults to info;
// set BENEFID_LOG_LEVEL=debug to lower it.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("BENEFID_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
