// Package logger constructs the process logger. Pretty mode uses the
// charmbracelet/log handler for colorized CLI output; otherwise records go
// through slog's JSON handler for machine-readable logs.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level  slog.Level
	pretty bool
	writer io.Writer
}

// New returns a *slog.Logger configured by opts. Defaults: Info level,
// JSON handler, stderr.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		writer: os.Stderr,
	}
	for _, o := range opts {
		o(c)
	}

	if c.pretty {
		h := charmlog.NewWithOptions(c.writer, charmlog.Options{
			Level:           charmLevel(c.level),
			ReportTimestamp: true,
		})
		return slog.New(h)
	}

	return slog.New(slog.NewJSONHandler(c.writer, &slog.HandlerOptions{Level: c.level}))
}

func charmLevel(l slog.Level) charmlog.Level {
	switch {
	case l <= slog.LevelDebug:
		return charmlog.DebugLevel
	case l <= slog.LevelInfo:
		return charmlog.InfoLevel
	case l <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}
