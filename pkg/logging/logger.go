package logging

import (
	"context"
)

// Level represents log severity
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Fields represents structured log fields
type Fields map[string]interface{}

// Logger is the structured logger used across the scan pipeline. Every
// implementation must be safe for concurrent use by the worker pool.
type Logger interface {
	Debug(ctx context.Context, msg string, fields Fields)
	Info(ctx context.Context, msg string, fields Fields)
	Warn(ctx context.Context, msg string, fields Fields)

	// Error logs an error message; err may be nil
	Error(ctx context.Context, msg string, err error, fields Fields)

	// WithFields returns a logger adding fields to every entry. The derived
	// logger writes to the same output as its parent.
	WithFields(fields Fields) Logger

	// Close flushes and closes the logger
	Close() error
}
