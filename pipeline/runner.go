// Package pipeline orchestrates silence analysis for stored recordings:
// normalize, segment, classify, flag, alert. Each recording moves through a
// small state machine persisted in a state.Store; at most one run per
// recording is in flight at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SonixLabs/SilenceKit/alert"
	"github.com/SonixLabs/SilenceKit/audio"
	"github.com/SonixLabs/SilenceKit/logger"
	"github.com/SonixLabs/SilenceKit/metrics/prometheus"
	"github.com/SonixLabs/SilenceKit/pipeline/state"
	"github.com/SonixLabs/SilenceKit/prefs"
	"github.com/SonixLabs/SilenceKit/storage"
	"github.com/SonixLabs/SilenceKit/telemetry"
	"github.com/SonixLabs/SilenceKit/transcode"
)

// Runner executes analysis runs against the configured collaborators.
type Runner struct {
	recordings storage.RecordingStore
	states     state.Store
	engine     transcode.Engine
	prefs      prefs.Provider

	// notifier delivers alerts for flagged runs. Nil disables delivery.
	notifier alert.Notifier

	// newClassifier builds the frame classifier for a run's sensitivity.
	// Defaults to the energy classifier.
	newClassifier func(sensitivity int) (audio.FrameClassifier, error)

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithNotifier sets the alert notifier for flagged runs.
func WithNotifier(n alert.Notifier) RunnerOption {
	return func(r *Runner) { r.notifier = n }
}

// WithClassifierFactory swaps the classifier implementation. The factory
// receives the caller-resolved sensitivity for each run.
func WithClassifierFactory(f func(sensitivity int) (audio.FrameClassifier, error)) RunnerOption {
	return func(r *Runner) { r.newClassifier = f }
}

// NewRunner creates a Runner over the given collaborators.
func NewRunner(recordings storage.RecordingStore, states state.Store, engine transcode.Engine, provider prefs.Provider, opts ...RunnerOption) *Runner {
	r := &Runner{
		recordings: recordings,
		states:     states,
		engine:     engine,
		prefs:      provider,
		newClassifier: func(sensitivity int) (audio.FrameClassifier, error) {
			return audio.NewEnergyClassifier(sensitivity)
		},
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run analyzes one recording synchronously and returns the run ID. A second
// Run for the same recording while one is in flight returns
// ErrAlreadyProcessing without touching any state.
func (r *Runner) Run(ctx context.Context, recordingID, ownerID string) (string, error) {
	if err := r.acquire(recordingID); err != nil {
		return "", err
	}
	defer r.release(recordingID)

	runID := uuid.NewString()
	return runID, r.process(ctx, recordingID, ownerID, runID)
}

// acquire takes the per-recording run token. It never blocks: a held token
// means rejection.
func (r *Runner) acquire(recordingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[recordingID]; busy {
		prometheus.RecordRunRejected()
		return fmt.Errorf("%w: %s", ErrAlreadyProcessing, recordingID)
	}
	r.inFlight[recordingID] = struct{}{}
	return nil
}

func (r *Runner) release(recordingID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, recordingID)
}

// process drives one run through the state machine. The caller must hold the
// recording's run token.
func (r *Runner) process(ctx context.Context, recordingID, ownerID, runID string) error {
	started := time.Now()
	prometheus.RecordRunStart()

	ctx = logger.WithRecordingID(ctx, recordingID)
	ctx = logger.WithRunID(ctx, runID)
	if ownerID != "" {
		ctx = logger.WithOwnerID(ctx, ownerID)
	}
	ctx, runSpan := telemetry.StartRun(ctx, recordingID, runID)
	defer runSpan.End()

	st, err := r.beginRun(ctx, recordingID, ownerID, runID)
	if err != nil {
		prometheus.RecordRunEnd(prometheus.StatusErrored, time.Since(started).Seconds())
		return err
	}

	canonicalPath, err := r.normalize(ctx, st)
	if err != nil {
		r.failRun(ctx, st, err)
		prometheus.RecordRunEnd(prometheus.StatusErrored, time.Since(started).Seconds())
		return err
	}
	defer func() {
		if err := os.Remove(canonicalPath); err != nil && !os.IsNotExist(err) {
			logger.WarnContext(ctx, "failed to remove canonical temp file", "path", canonicalPath, "error", err)
		}
	}()

	segments, totalDuration, err := r.segment(ctx, st, canonicalPath)
	if err != nil {
		r.failRun(ctx, st, err)
		prometheus.RecordRunEnd(prometheus.StatusErrored, time.Since(started).Seconds())
		return err
	}

	report, silences := r.classify(ctx, st, segments, totalDuration)

	st.Status = state.StatusCompleted
	st.Flagged = len(silences) > 0
	st.Report = report
	st.LastError = ""
	if err := r.states.Save(ctx, st); err != nil {
		prometheus.RecordRunEnd(prometheus.StatusErrored, time.Since(started).Seconds())
		return fmt.Errorf("failed to save completed state: %w", err)
	}

	if st.Flagged {
		r.deliverAlert(ctx, st, silences)
	}

	logger.RunCompleted(recordingID, runID, st.Flagged,
		"silence_percentage", report.SilencePercentage,
		"unnatural_silences", len(silences),
	)
	status := prometheus.StatusCompletedClean
	if st.Flagged {
		status = prometheus.StatusCompletedFlagged
	}
	prometheus.RecordRunEnd(status, time.Since(started).Seconds())
	return nil
}

// beginRun loads or creates the analysis state and stamps it Pending for
// this run. The prior report is carried until a new one replaces it.
func (r *Runner) beginRun(ctx context.Context, recordingID, ownerID, runID string) (*state.RecordingAnalysisState, error) {
	st, err := r.states.Load(ctx, recordingID)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			return nil, fmt.Errorf("failed to load analysis state: %w", err)
		}
		st = &state.RecordingAnalysisState{RecordingID: recordingID}
	}
	if ownerID != "" {
		st.OwnerID = ownerID
	}
	st.RunID = runID
	st.Status = state.StatusPending
	if err := r.states.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to save pending state: %w", err)
	}
	return st, nil
}

// transition advances the state machine one step and persists it.
func (r *Runner) transition(ctx context.Context, st *state.RecordingAnalysisState, to state.Status) error {
	from := st.Status
	st.Status = to
	if err := r.states.Save(ctx, st); err != nil {
		return fmt.Errorf("failed to save %s state: %w", to, err)
	}
	logger.RunTransition(st.RecordingID, st.RunID, string(from), string(to))
	return nil
}

// failRun absorbs the run into Errored. The prior report stays attached so
// an operator can still see the last good analysis.
func (r *Runner) failRun(ctx context.Context, st *state.RecordingAnalysisState, cause error) {
	st.Status = state.StatusErrored
	st.LastError = cause.Error()
	if err := r.states.Save(ctx, st); err != nil {
		logger.ErrorContext(ctx, "failed to save errored state", "error", err)
	}
	logger.RunFailed(st.RecordingID, st.RunID, cause)
}

// normalize converts the stored payload to canonical PCM and persists the
// probed sample rate and duration immediately, not at run completion.
func (r *Runner) normalize(ctx context.Context, st *state.RecordingAnalysisState) (string, error) {
	stageCtx, span := telemetry.StartStage(ctx, telemetry.StageNormalize)
	stageStart := time.Now()

	if err := r.transition(stageCtx, st, state.StatusNormalizing); err != nil {
		telemetry.EndStage(span, err)
		return "", err
	}

	sourcePath, _, err := r.recordings.GetAudio(stageCtx, st.RecordingID)
	if err != nil {
		telemetry.EndStage(span, err)
		return "", &NormalizationError{RecordingID: st.RecordingID, Err: err}
	}

	canonicalPath, err := r.engine.Normalize(stageCtx, sourcePath)
	if err != nil {
		telemetry.EndStage(span, err)
		return "", &NormalizationError{RecordingID: st.RecordingID, Err: err}
	}

	info, err := r.engine.Probe(stageCtx, canonicalPath)
	if err != nil {
		telemetry.EndStage(span, err)
		return "", &NormalizationError{RecordingID: st.RecordingID, Err: err}
	}

	md, err := r.recordings.GetMetadata(stageCtx, st.RecordingID)
	if err != nil {
		telemetry.EndStage(span, err)
		return "", &NormalizationError{RecordingID: st.RecordingID, Err: err}
	}
	md.SampleRate = info.SampleRate
	md.DurationSeconds = info.Duration
	if err := r.recordings.SetMetadata(stageCtx, st.RecordingID, md); err != nil {
		telemetry.EndStage(span, err)
		return "", &NormalizationError{RecordingID: st.RecordingID, Err: err}
	}

	telemetry.EndStage(span, nil)
	prometheus.RecordStageDuration(telemetry.StageNormalize, time.Since(stageStart).Seconds())
	return canonicalPath, nil
}

// segment decodes the canonical audio and produces the merged segment list.
func (r *Runner) segment(ctx context.Context, st *state.RecordingAnalysisState, canonicalPath string) ([]audio.Segment, float64, error) {
	stageCtx, span := telemetry.StartStage(ctx, telemetry.StageSegment)
	stageStart := time.Now()

	if err := r.transition(stageCtx, st, state.StatusSegmenting); err != nil {
		telemetry.EndStage(span, err)
		return nil, 0, err
	}

	canonical, err := transcode.DecodeWAV(canonicalPath)
	if err != nil {
		telemetry.EndStage(span, err)
		return nil, 0, fmt.Errorf("failed to decode canonical audio: %w", err)
	}

	sensitivity := r.prefs.VADSensitivity(st.OwnerID)
	classifier, err := r.newClassifier(sensitivity)
	if err != nil {
		telemetry.EndStage(span, err)
		return nil, 0, fmt.Errorf("failed to build classifier: %w", err)
	}

	segments := audio.NewSegmenter(classifier).Segment(canonical)

	telemetry.EndStage(span, nil)
	prometheus.RecordStageDuration(telemetry.StageSegment, time.Since(stageStart).Seconds())
	return segments, canonical.Duration(), nil
}

// classify builds the report and detects unnatural silences with the
// caller-resolved threshold. It cannot fail: the report is a pure function
// of the segments.
func (r *Runner) classify(ctx context.Context, st *state.RecordingAnalysisState, segments []audio.Segment, totalDuration float64) (*audio.VadReport, []audio.UnnaturalSilence) {
	stageCtx, span := telemetry.StartStage(ctx, telemetry.StageClassify)
	stageStart := time.Now()

	if err := r.transition(stageCtx, st, state.StatusClassifying); err != nil {
		// Persistence trouble here is survivable; the terminal save decides.
		logger.WarnContext(stageCtx, "failed to persist classifying transition", "error", err)
	}

	report := audio.BuildReport(segments, totalDuration)
	threshold := r.prefs.SilenceThreshold(st.OwnerID)
	silences := audio.DetectUnnaturalSilences(report, threshold)
	report.UnnaturalSilences = silences

	telemetry.EndStage(span, nil)
	prometheus.RecordStageDuration(telemetry.StageClassify, time.Since(stageStart).Seconds())
	prometheus.RecordUnnaturalSilences(len(silences))
	return report, silences
}

// deliverAlert sends at most one alert for a flagged run, gated by the
// owner's preference. The mail relay is resolved per owner so user-level
// SMTP overrides apply. Delivery failure never changes the run outcome.
func (r *Runner) deliverAlert(ctx context.Context, st *state.RecordingAnalysisState, silences []audio.UnnaturalSilence) {
	if r.notifier == nil || !r.prefs.AlertEnabled(st.OwnerID) {
		return
	}
	recipient := r.prefs.AlertRecipient(st.OwnerID)
	if recipient == "" {
		logger.DebugContext(ctx, "flagged run has no alert recipient, skipping")
		return
	}

	stageCtx, span := telemetry.StartStage(ctx, telemetry.StageAlert)
	stageStart := time.Now()

	md, err := r.recordings.GetMetadata(stageCtx, st.RecordingID)
	if err != nil {
		telemetry.EndStage(span, err)
		prometheus.RecordAlertFailure()
		logger.AlertDelivery(st.RecordingID, recipient, err)
		return
	}

	summary := alert.Summary{
		RecordingID: st.RecordingID,
		Title:       md.Title,
		Kind:        md.Kind,
		CreatedAt:   md.CreatedAt,
	}
	relay := r.prefs.SMTPConfig(st.OwnerID)
	err = r.notifier.Send(stageCtx, relay, recipient, summary, silences)
	telemetry.EndStage(span, err)
	prometheus.RecordStageDuration(telemetry.StageAlert, time.Since(stageStart).Seconds())
	if err != nil {
		prometheus.RecordAlertFailure()
	}
	logger.AlertDelivery(st.RecordingID, recipient, err)
}
