// Package logger builds the process-wide slog.Logger: leveled, tagged with
// the deployment environment, and JSON-encoded in production.
package logger
