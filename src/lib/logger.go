package lib

import (
	"log/slog"
	"os"
)

// InitLogger installs the process-wide structured logger. LOG_LEVEL accepts
// debug, info, warn, error.
func InitLogger() {
	level := slog.LevelInfo
	switch getEnv("LOG_LEVEL", "info") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
