// Package logger configures the process-wide zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Init initializes a stderr logger at the given level. The LOG_LEVEL
// environment variable overrides the configured level when set.
func Init(level string) zerolog.Logger {
	log, _ := InitWithOptions("", false, level)
	return log
}

// InitWithOptions initializes the logger with the specified options.
// If logFile is empty, logs go to stderr as JSON.
// If pretty is true, uses ConsoleWriter for human-readable output (only
// valid when logFile is empty).
func InitWithOptions(logFile string, pretty bool, level string) (zerolog.Logger, error) {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	logLevel := parseLogLevel(level)

	var output io.Writer
	switch {
	case logFile != "":
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		output = file
	case pretty:
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	default:
		output = os.Stderr
	}

	return zerolog.New(output).
		Level(logLevel).
		With().
		Timestamp().
		Logger(), nil
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
