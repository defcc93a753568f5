// Package log wraps zerolog behind a small facade for the command-line entry
// points, adding trace correlation from the request context. Library packages
// log through the zerolog global directly.
package log

import "context"

// Fields carries the structured key/value pairs attached to a log event.
type Fields map[string]interface{}

// Logger is the logging surface of the CLI. Error takes the failure as its
// own argument so it always lands in the standard error field.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Fields)
	Info(ctx context.Context, msg string, fields ...Fields)
	Warn(ctx context.Context, msg string, fields ...Fields)
	Error(ctx context.Context, msg string, err error, fields ...Fields)
	// With returns a logger that attaches fields to every subsequent event.
	With(fields Fields) Logger
}
