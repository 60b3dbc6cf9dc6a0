package infrastructure

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/architeacher/svc-health-messenger/internal/config"
)

// Logger wraps zerolog so callers can hang service-wide fields off one place.
type Logger struct {
	zerolog.Logger
}

func New(cfg config.LoggingConfig) Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	return Logger{
		Logger: zerolog.New(out).Level(level).With().Timestamp().Logger(),
	}
}
