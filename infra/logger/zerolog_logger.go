package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// Options configure a ZerologLogger explicitly.
type Options struct {
	// Level is a zerolog level name; empty means info.
	Level string
	// Console selects the human readable writer instead of JSON.
	Console bool
	// Out defaults to stdout.
	Out io.Writer
}

// NewZerologLogger creates a ZerologLogger using the APP_ENV environment
// variable to determine the output format and LOG_LEVEL for the level. All
// logs include the provided component field. An unknown level falls back
// to info.
func NewZerologLogger(component string) Logger {
	opts := Options{
		Level:   os.Getenv("LOG_LEVEL"),
		Console: strings.ToLower(os.Getenv("APP_ENV")) == "dev",
	}
	l, err := NewWithOptions(component, opts)
	if err != nil {
		opts.Level = ""
		l, _ = NewWithOptions(component, opts)
	}
	return l
}

// NewWithOptions creates a ZerologLogger from explicit options.
func NewWithOptions(component string, o Options) (*ZerologLogger, error) {
	lvl := zerolog.InfoLevel
	if o.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(o.Level))
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", o.Level, err)
		}
		lvl = parsed
	}
	out := o.Out
	if out == nil {
		out = os.Stdout
	}
	if o.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(out).Level(lvl).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}, nil
}

// With returns a child logger carrying an extra string field.
func (l *ZerologLogger) With(key, value string) *ZerologLogger {
	return &ZerologLogger{log: l.log.With().Str(key, value).Logger()}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
