package util

import (
	"log"
	"log/slog"
	"os"
)

var logger *slog.Logger

// InitLogger initializes the global slog logger with appropriate level.
// Logs go to stderr so command output on stdout stays pipeable.
func InitLogger(verbose bool) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelWarn, // Default level
	}

	if verbose {
		opts.Level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// GetLogger returns the configured logger instance
func GetLogger() *slog.Logger {
	if logger == nil {
		// Fallback initialization
		InitLogger(false)
	}
	return logger
}

// StdLogger bridges the standard log package onto slog, for libraries
// that only accept a *log.Logger (http.Server's ErrorLog).
func StdLogger() *log.Logger {
	return log.New(&logWriter{logger: GetLogger()}, "", 0)
}

type logWriter struct {
	logger *slog.Logger
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.logger.Error(string(p))
	return len(p), nil
}
