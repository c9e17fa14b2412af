// Package logger provides structured logging for dxshell.
//
// It wraps the standard library log/slog behind a small Logger interface:
//
//   - logger.go: handler setup, global level and the default logger
//   - context.go: logger and request ID propagation through context
//   - redact.go: masking of tokens and credential-bearing URLs
//
// The level is held in a shared slog.LevelVar so a config reload can change
// it without rebuilding loggers.
package logger
