package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/SonixLabs/SilenceKit/logger"
	"github.com/SonixLabs/SilenceKit/metrics/prometheus"
	"github.com/SonixLabs/SilenceKit/pipeline/state"
)

// Trim cuts the recording to [start, end) seconds, replaces the stored
// payload, and schedules a fresh analysis run on the trimmed audio. The
// returned run ID identifies that re-analysis.
//
// Validation happens before any mutation: a malformed range returns
// ErrInvalidRange, a range past the current duration returns
// ErrRangeExceedsDuration, and a recording already being processed returns
// ErrAlreadyProcessing. The re-analysis holds the same run token taken
// here, so nothing can slip in between the payload swap and the re-run.
func (d *Dispatcher) Trim(ctx context.Context, recordingID string, start, end float64) (string, error) {
	if start < 0 || start >= end {
		prometheus.RecordTrim(prometheus.StatusError)
		return "", fmt.Errorf("%w: [%v, %v)", ErrInvalidRange, start, end)
	}

	if err := d.runner.acquire(recordingID); err != nil {
		prometheus.RecordTrim(prometheus.StatusError)
		return "", err
	}

	runID := uuid.NewString()
	ownerID, err := d.runner.trim(ctx, recordingID, runID, start, end)
	if err != nil {
		d.runner.release(recordingID)
		prometheus.RecordTrim(prometheus.StatusError)
		return "", err
	}

	prometheus.RecordTrim(prometheus.StatusSuccess)
	d.scheduleLocked(recordingID, ownerID, runID)
	return runID, nil
}

// trim performs the synchronous half of a trim: validate against current
// duration, cut, replace the payload, update duration, reset the state to
// pending. The caller must hold the recording's run token.
//
// The steps are not atomic. A crash between payload replacement and the
// re-run leaves a detectable wound: updated duration, pending status, stale
// report. state.DetectStalled surfaces those for operator re-runs.
func (r *Runner) trim(ctx context.Context, recordingID, runID string, start, end float64) (string, error) {
	ctx = logger.WithRecordingID(ctx, recordingID)

	md, err := r.recordings.GetMetadata(ctx, recordingID)
	if err != nil {
		return "", fmt.Errorf("failed to load metadata: %w", err)
	}
	if end > md.DurationSeconds {
		return "", fmt.Errorf("%w: end %v > duration %v", ErrRangeExceedsDuration, end, md.DurationSeconds)
	}

	sourcePath, _, err := r.recordings.GetAudio(ctx, recordingID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch payload: %w", err)
	}

	trimmedPath, err := r.engine.Cut(ctx, sourcePath, start, end)
	if err != nil {
		return "", fmt.Errorf("failed to cut recording: %w", err)
	}

	if err := r.recordings.ReplaceAudio(ctx, recordingID, trimmedPath); err != nil {
		return "", fmt.Errorf("failed to replace payload: %w", err)
	}

	md.DurationSeconds = end - start
	if err := r.recordings.SetMetadata(ctx, recordingID, md); err != nil {
		return "", fmt.Errorf("failed to update duration: %w", err)
	}

	st, err := r.states.Load(ctx, recordingID)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			return "", fmt.Errorf("failed to load analysis state: %w", err)
		}
		st = &state.RecordingAnalysisState{RecordingID: recordingID}
	}
	st.OwnerID = md.OwnerID
	st.RunID = runID
	st.Status = state.StatusPending
	if err := r.states.Save(ctx, st); err != nil {
		return "", fmt.Errorf("failed to reset analysis state: %w", err)
	}

	logger.InfoContext(ctx, "recording trimmed",
		"start", start, "end", end, "new_duration", md.DurationSeconds)
	return md.OwnerID, nil
}
