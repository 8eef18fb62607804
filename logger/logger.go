// Package logger provides structured logging for the analysis runtime.
//
// This package wraps Go's standard log/slog with convenience functions for:
//   - Pipeline run logging (state transitions, stage timings, failures)
//   - Alert delivery logging
//   - Automatic redaction of mail credentials in logged values
//   - Contextual logging with per-run tracing
//   - Level-based verbosity control
//
// All exported functions use the global DefaultLogger which can be configured
// for different output formats and log levels.
package logger

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/SonixLabs/SilenceKit/version"
)

var (
	// DefaultLogger is the global structured logger instance.
	// It is safe for concurrent use and initialized with slog.LevelInfo by default.
	DefaultLogger *slog.Logger
)

func init() {
	// Check LOG_LEVEL environment variable
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		switch strings.ToLower(envLevel) {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	// Initialize with text handler writing to stderr
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(NewContextHandler(handler))
	version.LogStartup()
}

// SetLevel changes the logging level for all subsequent log operations.
// This is safe for concurrent use as it replaces the entire logger instance.
func SetLevel(level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(NewContextHandler(handler))
}

// SetVerbose enables debug-level logging when verbose is true, otherwise sets info-level.
// This is a convenience wrapper around SetLevel for command-line verbose flags.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// Info logs an informational message with structured key-value attributes.
// Args should be provided in key-value pairs: key1, value1, key2, value2, ...
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
// The context can be used for run tracing and cancellation.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
// Debug messages are only output when the log level is set to LevelDebug or lower.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
// Use for recoverable errors or unexpected but non-critical situations.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs a warning message with context and structured attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs an error message with structured attributes.
// Use for errors that affect operation but don't cause complete failure.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// RunTransition logs a pipeline status transition with structured fields.
// Additional attributes can be passed as key-value pairs after the required parameters.
func RunTransition(recordingID, runID, from, to string, attrs ...any) {
	allAttrs := make([]any, 0, 8+len(attrs))
	allAttrs = append(allAttrs,
		"recording_id", recordingID,
		"run_id", runID,
		"from", from,
		"to", to,
	)
	allAttrs = append(allAttrs, attrs...)
	Debug("pipeline transition", allAttrs...)
}

// RunCompleted logs a terminal pipeline run outcome.
func RunCompleted(recordingID, runID string, flagged bool, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"recording_id", recordingID,
		"run_id", runID,
		"flagged", flagged,
	)
	allAttrs = append(allAttrs, attrs...)
	Info("analysis run completed", allAttrs...)
}

// RunFailed logs a pipeline run that entered the errored state.
func RunFailed(recordingID, runID string, err error, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"recording_id", recordingID,
		"run_id", runID,
		"error", err,
	)
	allAttrs = append(allAttrs, attrs...)
	Error("analysis run failed", allAttrs...)
}

// AlertDelivery logs the outcome of an alert send attempt. Delivery failures
// are non-fatal to the pipeline, so they land at warn level, not error.
func AlertDelivery(recordingID, recipient string, err error, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"recording_id", recordingID,
		"recipient", recipient,
	)
	allAttrs = append(allAttrs, attrs...)
	if err != nil {
		allAttrs = append(allAttrs, "error", err)
		Warn("alert delivery failed", allAttrs...)
		return
	}
	Info("alert delivered", allAttrs...)
}

var (
	// credentialPatterns contains compiled regular expressions for detecting
	// sensitive data in logged values: SMTP URLs with inline credentials and
	// password-bearing key-value fragments.
	credentialPatterns = []*regexp.Regexp{
		regexp.MustCompile(`smtps?://[^:\s]+:[^@\s]+@`),
		regexp.MustCompile(`(?i)(password|passwd|pwd)=\S+`),
		regexp.MustCompile(`Basic\s+[a-zA-Z0-9+/=]+`),
	}
)

// RedactSensitiveData removes mail credentials and similar secrets from
// strings before they are logged. SMTP URLs keep their scheme and user but
// lose the password; password fields are blanked entirely.
//
// This function is safe for concurrent use as it only reads from the
// compiled patterns.
func RedactSensitiveData(input string) string {
	result := input

	for _, pattern := range credentialPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if strings.HasPrefix(match, "smtp") {
				if i := strings.Index(match, "://"); i >= 0 {
					if j := strings.Index(match[i+3:], ":"); j >= 0 {
						return match[:i+3+j] + ":[REDACTED]@"
					}
				}
			}
			if strings.HasPrefix(match, "Basic ") {
				return "Basic [REDACTED]"
			}
			if i := strings.Index(match, "="); i >= 0 {
				return match[:i+1] + "[REDACTED]"
			}
			return "[REDACTED]"
		})
	}

	return result
}
