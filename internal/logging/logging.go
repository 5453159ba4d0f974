package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a JSON logger at the named level. An empty level means info.
func New(out io.Writer, level string) (zerolog.Logger, error) {
	logger := zerolog.New(out).With().Timestamp().Logger()
	return withLevel(logger, level)
}

// NewConsole returns a human readable logger for interactive tools.
func NewConsole(out io.Writer, level string) (zerolog.Logger, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	return withLevel(logger, level)
}

func withLevel(logger zerolog.Logger, level string) (zerolog.Logger, error) {
	if strings.TrimSpace(level) == "" {
		return logger.Level(zerolog.InfoLevel), nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return logger, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return logger.Level(lvl), nil
}
