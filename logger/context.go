// Package logger provides structured logging for the analysis runtime.
package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields.
// These keys are used to store values in context.Context that will be
// automatically extracted and added to log entries.
const (
	// ContextKeyRecordingID identifies the recording being processed.
	ContextKeyRecordingID contextKey = "recording_id"

	// ContextKeyRunID identifies the individual pipeline run.
	ContextKeyRunID contextKey = "run_id"

	// ContextKeyStage identifies the pipeline stage (e.g. "normalizing", "segmenting").
	ContextKeyStage contextKey = "stage"

	// ContextKeyOwnerID identifies the user owning the recording.
	ContextKeyOwnerID contextKey = "owner_id"

	// ContextKeyEnvironment identifies the deployment environment.
	ContextKeyEnvironment contextKey = "environment"
)

// allContextKeys lists all context keys that should be extracted for logging.
// This is used by the handler to iterate over all possible context values.
var allContextKeys = []contextKey{
	ContextKeyRecordingID,
	ContextKeyRunID,
	ContextKeyStage,
	ContextKeyOwnerID,
	ContextKeyEnvironment,
}

// WithRecordingID returns a context carrying the recording identity for logging.
func WithRecordingID(ctx context.Context, recordingID string) context.Context {
	return context.WithValue(ctx, ContextKeyRecordingID, recordingID)
}

// WithRunID returns a context carrying the pipeline run identity for logging.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// WithStage returns a context carrying the current pipeline stage for logging.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ContextKeyStage, stage)
}

// WithOwnerID returns a context carrying the recording owner for logging.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ContextKeyOwnerID, ownerID)
}

// WithEnvironment returns a context carrying the deployment environment for logging.
func WithEnvironment(ctx context.Context, environment string) context.Context {
	return context.WithValue(ctx, ContextKeyEnvironment, environment)
}
