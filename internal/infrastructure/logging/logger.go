package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/config"
)

const serviceName = "grayhub"

// Logger is a slog.Logger whose children keep the hub's field names:
// component, domain, entry_id.
type Logger struct {
	*slog.Logger
}

// New builds the hub logger from the logging config section. Every entry
// carries service=grayhub and the hub version.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}
	return newWithWriter(output, cfg, version)
}

func newWithWriter(output io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler = slog.NewJSONHandler(output, opts)
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{Logger: slog.New(handler).With("service", serviceName, "version", version)}
}

// parseLevel maps a config level name to slog. Unknown names mean info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger with extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component tags a child logger with the subsystem that owns it
// ("entitybridge", "api", "sdk").
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Entry tags a child logger with a configuration entry.
//
//	log.Entry("comelit", "01J0COMELIT").Warn("entry not ready, setup deferred")
func (l *Logger) Entry(domain, entryID string) *Logger {
	return l.With("domain", domain, "entry_id", entryID)
}

// Default is the logger used before the config file is read: JSON at
// info on stdout.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// Discard drops everything. Tests use it.
func Discard() *Logger {
	return newWithWriter(io.Discard, config.LoggingConfig{Level: "error"}, "test")
}
