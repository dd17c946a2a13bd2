package logging

import "context"

// NullLogger drops everything sent to it. It is what FromConfig hands
// out when logging is disabled, and a convenient stand-in for tests.
type NullLogger struct{}

// NewNullLogger creates a logger that discards all records
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (l *NullLogger) Debug(ctx context.Context, msg string, fields Fields) {}

func (l *NullLogger) Info(ctx context.Context, msg string, fields Fields) {}

func (l *NullLogger) Warn(ctx context.Context, msg string, fields Fields) {}

func (l *NullLogger) Error(ctx context.Context, msg string, err error, fields Fields) {}

// WithFields returns the logger unchanged; there is nothing to attach to
func (l *NullLogger) WithFields(fields Fields) Logger {
	return l
}

func (l *NullLogger) Close() error {
	return nil
}
