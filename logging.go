package hyperopt

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel is a small enum over zerolog levels, so callers configure
// logging without importing zerolog directly.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LoggerConfig configures NewLogger.
type LoggerConfig struct {
	Level  LogLevel
	Output io.Writer // defaults to os.Stdout
}

// NewLogger builds a zerolog.Logger suitable for Study.SetLogger: a
// timestamped JSON writer with the level applied via zerolog.Logger.Level.
func NewLogger(cfg LoggerConfig) *zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	zlog := zerolog.New(out).With().Timestamp().Logger()

	switch cfg.Level {
	case LogLevelDebug:
		zlog = zlog.Level(zerolog.DebugLevel)
	case LogLevelWarn:
		zlog = zlog.Level(zerolog.WarnLevel)
	case LogLevelError:
		zlog = zlog.Level(zerolog.ErrorLevel)
	default:
		zlog = zlog.Level(zerolog.InfoLevel)
	}
	return &zlog
}

// NewConsoleLogger is a convenience constructor for interactive use,
// writing human-readable output instead of JSON lines - suitable for
// Study.SetLogger during local runs or CLI tools built on this package.
func NewConsoleLogger(level LogLevel) *zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return NewLogger(LoggerConfig{Level: level, Output: writer})
}
