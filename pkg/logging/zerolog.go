package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ZerologConfig holds configuration for the zerolog-backed logger
type ZerologConfig struct {
	// Level is the minimum log level
	Level Level
	// File is the log file path; empty logs to stderr
	File string
	// Console enables human-readable console formatting instead of JSON
	Console bool
}

// ZerologLogger implements Logger on top of zerolog
type ZerologLogger struct {
	logger zerolog.Logger
	file   *os.File
}

// NewZerologLogger creates a zerolog-backed logger
func NewZerologLogger(config ZerologConfig) (*ZerologLogger, error) {
	var w io.Writer = os.Stderr
	var file *os.File

	if config.File != "" {
		if err := os.MkdirAll(filepath.Dir(config.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		w = f
	}

	if config.Console {
		w = zerolog.ConsoleWriter{Out: w}
	}

	logger := zerolog.New(w).Level(zerologLevel(config.Level)).With().Timestamp().Logger()

	return &ZerologLogger{logger: logger, file: file}, nil
}

// NewZerologLoggerFrom wraps an existing zerolog.Logger, useful when the
// embedding application already configured one
func NewZerologLoggerFrom(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// Debug logs a debug message
func (l *ZerologLogger) Debug(ctx context.Context, msg string, fields Fields) {
	applyFields(l.logger.Debug(), fields).Msg(msg)
}

// Info logs an info message
func (l *ZerologLogger) Info(ctx context.Context, msg string, fields Fields) {
	applyFields(l.logger.Info(), fields).Msg(msg)
}

// Warn logs a warning message
func (l *ZerologLogger) Warn(ctx context.Context, msg string, fields Fields) {
	applyFields(l.logger.Warn(), fields).Msg(msg)
}

// Error logs an error message
func (l *ZerologLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	applyFields(l.logger.Error().Err(err), fields).Msg(msg)
}

// WithFields returns a logger with additional fields
func (l *ZerologLogger) WithFields(fields Fields) Logger {
	zctx := l.logger.With()
	for k, v := range fields {
		zctx = zctx.Interface(k, v)
	}
	return &ZerologLogger{logger: zctx.Logger(), file: l.file}
}

// Close flushes and closes the logger
func (l *ZerologLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func applyFields(event *zerolog.Event, fields Fields) *zerolog.Event {
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	return event
}

func zerologLevel(level Level) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}
