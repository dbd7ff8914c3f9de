package logger

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with additional context.
type Logger struct {
	logger  zerolog.Logger
	service string
	redact  bool
}

// Init initializes the global logger from config.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	globalLogger = New(&cfg, "soapnote")

	level, _ := zerolog.ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
}

// New creates a new logger instance with configuration.
func New(cfg *Config, serviceName string) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var zl zerolog.Logger
	if strings.ToLower(cfg.Format) == "console" {
		zl = newConsoleLogger(cfg)
	} else {
		zl = zerolog.New(outputWriter(cfg.Output))
	}

	if cfg.Timestamp {
		zl = zl.With().Timestamp().Logger()
	}

	return &Logger{
		logger:  zl,
		service: serviceName,
		redact:  cfg.RedactPHI,
	}
}

// NewDefault creates a logger with default configuration.
func NewDefault(serviceName string) *Logger {
	cfg := &Config{
		Level:     "info",
		Format:    "console",
		Output:    "stdout",
		Timestamp: true,
	}
	return New(cfg, serviceName)
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		logger:  l.logger.With().Str(FieldComponent, name).Logger(),
		service: l.service,
		redact:  l.redact,
	}
}

// WithRun returns a logger tagged with a pipeline run identifier.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{
		logger:  l.logger.With().Str(FieldRunID, runID).Logger(),
		service: l.service,
		redact:  l.redact,
	}
}

// WithContext returns a logger enriched with request/run IDs from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.logger.With()
	if v := ctx.Value(contextKey("request_id")); v != nil {
		zc = zc.Str(FieldRequestID, fmt.Sprintf("%v", v))
	}
	if v := ctx.Value(contextKey("run_id")); v != nil {
		zc = zc.Str(FieldRunID, fmt.Sprintf("%v", v))
	}
	return &Logger{logger: zc.Logger(), service: l.service, redact: l.redact}
}

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

// ContextWithRequestID stores a request id for WithContext to pick up.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey("request_id"), id)
}

// ContextWithRunID stores a run id for WithContext to pick up.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey("run_id"), id)
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zc := l.logger.With()
	for k, v := range fields {
		if l.redact {
			v = redactValue(v)
		}
		zc = zc.Interface(k, v)
	}
	return &Logger{logger: zc.Logger(), service: l.service, redact: l.redact}
}

// WithError returns a logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	if err != nil && l.redact {
		return &Logger{
			logger:  l.logger.With().Str(FieldError, Redact(err.Error())).Logger(),
			service: l.service,
			redact:  l.redact,
		}
	}
	return &Logger{
		logger:  l.logger.With().Err(err).Logger(),
		service: l.service,
		redact:  l.redact,
	}
}

// GetLogger returns the underlying zerolog.Logger.
func (l *Logger) GetLogger() zerolog.Logger {
	return l.logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Debug(), msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Info(), msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Warn(), msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Error(), msg, fields...)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Fatal(), msg, fields...)
}

func (l *Logger) emit(event *zerolog.Event, msg string, fields ...map[string]interface{}) {
	for _, fm := range fields {
		for k, v := range fm {
			if l.redact {
				v = redactValue(v)
			}
			event.Interface(k, v)
		}
	}
	if l.redact {
		msg = Redact(msg)
	}
	event.Msg(msg)
}

// --- Global logger ---

var globalLogger *Logger

// SetGlobalLogger sets the global logger instance.
func SetGlobalLogger(l *Logger) { globalLogger = l }

// GetGlobalLogger returns the global logger, creating a default one if needed.
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewDefault("soapnote")
	}
	return globalLogger
}

// Package-level convenience functions delegate to the global logger.

func Debug(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Warn(msg, fields...)
}

func Error(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Error(msg, fields...)
}

// WithComponent returns a component-tagged logger from the global logger.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

// --- internal helpers ---

func outputWriter(output string) *os.File {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	default:
		return os.Stdout
	}
}

func newConsoleLogger(cfg *Config) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        outputWriter(cfg.Output),
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
	}).With().Timestamp().Logger()
}
