// Package state provides durable per-recording analysis state storage.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/SonixLabs/SilenceKit/audio"
)

// Status is the lifecycle position of a recording's analysis.
type Status string

const (
	// StatusPending means the recording is queued and untouched this run.
	StatusPending Status = "pending"

	// StatusNormalizing means the payload is being converted to canonical
	// PCM.
	StatusNormalizing Status = "normalizing"

	// StatusSegmenting means frame classification and merging is underway.
	StatusSegmenting Status = "segmenting"

	// StatusClassifying means anomaly detection is running on the segments.
	StatusClassifying Status = "classifying"

	// StatusCompleted means the run finished and a report is attached.
	// Flagged distinguishes clean from flagged completions.
	StatusCompleted Status = "completed"

	// StatusErrored means the run halted; LastError carries the cause.
	StatusErrored Status = "errored"
)

// Terminal reports whether the status is an end state for a run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusErrored
}

// RecordingAnalysisState is the durable analysis document for one recording.
// It is replaced wholesale on every run; only the latest run's outcome is
// kept.
type RecordingAnalysisState struct {
	RecordingID string           `json:"recording_id"`
	OwnerID     string           `json:"owner_id,omitempty"`
	RunID       string           `json:"run_id,omitempty"`
	Status      Status           `json:"status"`
	Flagged     bool             `json:"flagged"`
	Report      *audio.VadReport `json:"report,omitempty"`
	LastError   string           `json:"last_error,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ErrNotFound is returned when no analysis state exists for a recording.
var ErrNotFound = errors.New("analysis state not found")

// ErrInvalidID is returned when an empty recording ID is provided.
var ErrInvalidID = errors.New("invalid recording ID")

// ErrInvalidState is returned when a nil state is saved.
var ErrInvalidState = errors.New("invalid analysis state")

// Store persists analysis state keyed by recording ID.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Load retrieves the analysis state for a recording.
	Load(ctx context.Context, recordingID string) (*RecordingAnalysisState, error)

	// Save persists the analysis state, stamping UpdatedAt.
	Save(ctx context.Context, st *RecordingAnalysisState) error

	// Delete removes the analysis state for a recording.
	Delete(ctx context.Context, recordingID string) error

	// List returns the recording IDs with stored analysis state.
	List(ctx context.Context) ([]string, error)
}

// DetectStalled returns recordings stuck mid-run: state in a non-terminal
// status whose last update is older than olderThan. A trim interrupted
// between payload replacement and re-analysis shows up here as a stale
// pending entry.
func DetectStalled(ctx context.Context, store Store, now time.Time, olderThan time.Duration) ([]string, error) {
	ids, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	var stalled []string
	for _, id := range ids {
		st, err := store.Load(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !st.Status.Terminal() && now.Sub(st.UpdatedAt) >= olderThan {
			stalled = append(stalled, id)
		}
	}
	return stalled, nil
}
