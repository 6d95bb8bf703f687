package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger represents a structured logger
type Logger struct {
	logger zerolog.Logger
}

// Fields represents log fields
type Fields map[string]interface{}

var (
	// Default is the default logger instance
	Default *Logger
)

// Init initializes the logger with the given configuration
func Init() {
	level := getLogLevel()

	// Configure zerolog
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	// Console output unless JSON lines were asked for
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	if os.Getenv("LOG_FORMAT") == "json" {
		output = os.Stdout
	}

	Default = &Logger{logger: zerolog.New(output).With().Timestamp().Str("service", "productfinder").Logger()}

	Default.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// New creates a logger writing JSON lines to w
func New(w io.Writer) *Logger {
	return &Logger{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// getLogLevel returns the log level from environment variable
func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("APP_ENVIRONMENT")
		if levelStr == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// WithContext creates a new logger with context
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger.GetLevel() != zerolog.Disabled {
		return &Logger{logger: ctxLogger.With().Logger()}
	}
	return l
}

// Zerolog exposes the underlying zerolog logger
func (l *Logger) Zerolog() zerolog.Logger {
	return l.logger
}

// WithFields creates a new logger with fields
func (l *Logger) WithFields(fields Fields) *Logger {
	newLogger := l.logger.With()
	for k, v := range fields {
		newLogger = newLogger.Interface(k, v)
	}
	return &Logger{logger: newLogger.Logger()}
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// Debug returns a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info returns an info event
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn returns a warn event
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error returns an error event
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

// Fatal returns a fatal event
func (l *Logger) Fatal() *zerolog.Event {
	return l.logger.Fatal()
}

// WithError adds an error to the logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

var initOnce sync.Once

// get returns Default, initializing it from the environment on first use
func get() *Logger {
	initOnce.Do(func() {
		if Default == nil {
			Init()
		}
	})
	return Default
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	get().Debug().Msgf(format, v...)
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	get().Info().Msgf(format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	get().Warn().Msgf(format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	get().Error().Msgf(format, v...)
}

// Fatal logs a fatal message and exits
func Fatal(format string, v ...interface{}) {
	get().Fatal().Msgf(format, v...)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	l := get()
	return zerolog.GlobalLevel() <= zerolog.DebugLevel && l.logger.GetLevel() <= zerolog.DebugLevel
}

func component(name string) *Logger {
	return get().WithField("component", name)
}

// ForScraper creates a logger for a scrape run
func ForScraper(runID string) *Logger {
	return get().WithFields(Fields{"component": "scraper", "run_id": runID})
}

// ForTransport creates a logger for the transport layer
func ForTransport() *Logger { return component("transport") }

// ForWorker creates a logger for the worker
func ForWorker() *Logger { return component("worker") }

// ForPublisher creates a logger for the publisher
func ForPublisher() *Logger { return component("publisher") }

// ForCache creates a logger for the cache
func ForCache() *Logger { return component("cache") }

// ForProxy creates a logger for the proxy list loader
func ForProxy() *Logger { return component("proxy") }

// LogError logs err with a component tag and a formatted message
func LogError(name string, err error, format string, v ...interface{}) {
	get().Error().
		Str("component", name).
		Err(err).
		Msgf(format, v...)
}

// LogInfo logs a formatted message with a component tag
func LogInfo(name string, format string, v ...interface{}) {
	get().Info().
		Str("component", name).
		Msgf(format, v...)
}
