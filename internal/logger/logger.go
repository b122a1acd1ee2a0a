// Package logger builds the process zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Build struct {
	writer io.Writer
	level  string
	format string
}

func New() *Build {
	return &Build{writer: os.Stdout, level: "info", format: FormatJSON}
}

func (b *Build) WithWriter(w io.Writer) *Build {
	b.writer = w
	return b
}

func (b *Build) WithLevel(level string) *Build {
	b.level = level
	return b
}

// WithFormat selects json or console output.
func (b *Build) WithFormat(format string) *Build {
	b.format = format
	return b
}

func (b *Build) Make() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(b.level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", b.level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	w := b.writer
	switch b.format {
	case FormatJSON, "":
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: b.writer, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: want json or console", b.format)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
