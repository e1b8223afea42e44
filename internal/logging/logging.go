package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls the global logger
type Options struct {
	Verbose bool
	// JSON switches from the console writer to one JSON object per line,
	// which is what the HTTP server wants under a supervisor.
	JSON   bool
	Output io.Writer
}

// Init initializes the global logger
func Init(opts Options) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	if !opts.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// WithComponent creates a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
