package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger and provides structured logging capabilities.
type Logger struct {
	zlog zerolog.Logger
}

// New creates a new Logger instance configured for the given environment.
// In development mode, it outputs pretty-printed colored logs.
// In production mode, it outputs JSON formatted logs.
func New(env string) *Logger {
	return NewWithOptions(Options{Env: env})
}

// Options configures a Logger. Zero values fall back to the environment
// defaults used by New.
type Options struct {
	Env string
	// Level is a zerolog level name such as "debug" or "warn".
	Level  string
	Output io.Writer
}

// NewWithOptions creates a Logger from explicit options.
// Development gets colored console lines, every other environment JSON.
// Color is turned off when the caller supplies its own writer, so captured
// output stays plain.
func NewWithOptions(opts Options) *Logger {
	// Stdout unless a writer was supplied (tests, the CLI)
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	// JSON by default; console formatting only in development
	var output io.Writer = out
	if opts.Env == "development" {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    opts.Output != nil,
		}
	}

	// Configure global settings
	zerolog.TimeFieldFormat = time.RFC3339

	// Debug in development, info elsewhere
	level := zerolog.InfoLevel
	if opts.Env == "development" {
		level = zerolog.DebugLevel
	}
	// An explicit LOG_LEVEL wins; an unknown name keeps the default
	if opts.Level != "" {
		if parsed, err := zerolog.ParseLevel(opts.Level); err == nil {
			level = parsed
		}
	}

	// Every entry carries a timestamp
	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{zlog: zlog}
}

// Debug logs a debug message with optional fields.
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	emit(l.zlog.Debug(), msg, fields)
}

// Info logs an info message with optional fields.
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	emit(l.zlog.Info(), msg, fields)
}

// Warn logs a warning message with optional fields.
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	emit(l.zlog.Warn(), msg, fields)
}

// Error logs an error message with an error and optional fields. err may be nil.
func (l *Logger) Error(msg string, err error, fields map[string]interface{}) {
	emit(l.zlog.Error().Err(err), msg, fields)
}

// Fatal logs a fatal message and exits the application.
func (l *Logger) Fatal(msg string, err error, fields map[string]interface{}) {
	emit(l.zlog.Fatal().Err(err), msg, fields)
}

func emit(event *zerolog.Event, msg string, fields map[string]interface{}) {
	// Disabled levels return a nil event.
	if event == nil {
		return
	}
	event.Fields(fields).Msg(msg)
}

// With creates a child logger with additional context fields.
// Services use it to pin ids such as the address or batch being worked on
// to every line they log.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Fields(fields).Logger()}
}

// WithRequestID creates a child logger with a request ID field.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		zlog: l.zlog.With().Str("request_id", requestID).Logger(),
	}
}

// WithActor creates a child logger tagged with the acting user.
// An empty actor returns l unchanged.
func (l *Logger) WithActor(actor string) *Logger {
	if actor == "" {
		return l
	}
	return &Logger{
		zlog: l.zlog.With().Str("actor", actor).Logger(),
	}
}

// GetZerolog returns the underlying zerolog.Logger for advanced usage.
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}
