// Package logging builds the zerolog logger every regctl component logs to.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config selects the log destination and verbosity.
type Config struct {
	Level string
	// Debug forces debug level and mirrors records to Console.
	Debug bool
	// File receives JSON records. Empty disables the file.
	File string
	// Console receives human-readable records when Debug is set.
	Console io.Writer
}

// Logger is an initialized root logger and whatever it holds open.
type Logger struct {
	zerolog.Logger
	Session string

	closer io.Closer
}

// Close releases the log file.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// New opens the configured outputs and returns a root logger tagged with a
// fresh session id.
func New(cfg Config) (*Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}

	var writers []io.Writer
	l := &Logger{Session: uuid.NewString()}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		writers = append(writers, f)
		l.closer = f
	}
	if cfg.Debug {
		console := cfg.Console
		if console == nil {
			console = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly})
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	l.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("session", l.Session).
		Logger()
	return l, nil
}

// Component returns a sub-logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
