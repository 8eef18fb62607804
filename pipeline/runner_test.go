package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/SonixLabs/SilenceKit/alert"
	"github.com/SonixLabs/SilenceKit/audio"
	"github.com/SonixLabs/SilenceKit/pipeline/state"
	"github.com/SonixLabs/SilenceKit/prefs"
	"github.com/SonixLabs/SilenceKit/storage"
	"github.com/SonixLabs/SilenceKit/storage/memory"
	"github.com/SonixLabs/SilenceKit/transcode"
)

// fakeEngine is a transcode.Engine that emits fixed canonical audio instead
// of shelling out.
type fakeEngine struct {
	mu sync.Mutex

	// samples becomes the canonical audio produced by Normalize.
	samples []int16

	normalizeErr error
	workDir      string

	cutCalls []cutCall
}

type cutCall struct {
	start, end float64
}

func (e *fakeEngine) Normalize(ctx context.Context, path string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.normalizeErr != nil {
		return "", e.normalizeErr
	}
	return e.writeWAV(e.samples)
}

func (e *fakeEngine) Probe(ctx context.Context, path string) (transcode.Info, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return transcode.Info{
		SampleRate: audio.AnalysisSampleRate,
		Duration:   float64(len(e.samples)) / audio.AnalysisSampleRate,
	}, nil
}

func (e *fakeEngine) Cut(ctx context.Context, path string, start, end float64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cutCalls = append(e.cutCalls, cutCall{start: start, end: end})
	n := int((end - start) * audio.AnalysisSampleRate)
	if n > len(e.samples) {
		n = len(e.samples)
	}
	return e.writeWAV(e.samples[:n])
}

func (e *fakeEngine) writeWAV(samples []int16) (string, error) {
	data, err := transcode.EncodeWAV(samples, audio.AnalysisSampleRate)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp(e.workDir, "canonical-*.wav")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// fakeNotifier records deliveries; optionally fails.
type fakeNotifier struct {
	mu        sync.Mutex
	sendErr   error
	sends     int
	relay     alert.SMTPConfig
	recipient string
	summary   alert.Summary
	silences  []audio.UnnaturalSilence
}

func (n *fakeNotifier) Send(ctx context.Context, relay alert.SMTPConfig, recipient string, summary alert.Summary, silences []audio.UnnaturalSilence) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends++
	n.relay = relay
	n.recipient = recipient
	n.summary = summary
	n.silences = silences
	return n.sendErr
}

func (n *fakeNotifier) sendCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sends
}

func voiceSamples(seconds float64) []int16 {
	n := int(seconds * audio.AnalysisSampleRate)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = 8000
	}
	return samples
}

func silentSamples(seconds float64) []int16 {
	return make([]int16, int(seconds*audio.AnalysisSampleRate))
}

type testHarness struct {
	recordings *memory.Store
	states     *state.MemoryStore
	engine     *fakeEngine
	prefs      *prefs.Static
	notifier   *fakeNotifier
	runner     *Runner
}

func newHarness(t *testing.T, samples []int16) *testHarness {
	t.Helper()
	h := &testHarness{
		recordings: memory.NewStore(),
		states:     state.NewMemoryStore(),
		engine:     &fakeEngine{samples: samples, workDir: t.TempDir()},
		prefs:      prefs.NewStatic(),
		notifier:   &fakeNotifier{},
	}
	h.prefs.Defaults.AlertEnabled = true
	h.prefs.Users["u1"] = prefs.UserOverride{AlertRecipient: "u1@example.com"}
	h.runner = NewRunner(h.recordings, h.states, h.engine, h.prefs, WithNotifier(h.notifier))
	return h
}

func (h *testHarness) putRecording(t *testing.T, id string) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "src.mp3")
	require.NoError(t, os.WriteFile(src, []byte("opaque"), 0o644))
	require.NoError(t, h.recordings.Put(context.Background(), id, src, storage.RecordingMetadata{
		Title:     "Quarterly review",
		Kind:      "meeting",
		OwnerID:   "u1",
		Format:    "mp3",
		CreatedAt: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}))
}

func TestRunner_CompletedClean(t *testing.T) {
	h := newHarness(t, voiceSamples(2))
	h.putRecording(t, "rec-1")

	runID, err := h.runner.Run(context.Background(), "rec-1", "u1")
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	st, err := h.states.Load(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, state.StatusCompleted, st.Status)
	assert.False(t, st.Flagged)
	assert.Equal(t, runID, st.RunID)
	require.NotNil(t, st.Report)
	assert.Equal(t, 2.0, st.Report.TotalDurationSeconds)
	assert.Equal(t, 0.0, st.Report.SilencePercentage)
	assert.Empty(t, st.Report.UnnaturalSilences)

	// Probed sample rate and duration land in metadata during the run.
	md, err := h.recordings.GetMetadata(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, audio.AnalysisSampleRate, md.SampleRate)
	assert.Equal(t, 2.0, md.DurationSeconds)

	assert.Equal(t, 0, h.notifier.sendCount(), "clean runs never alert")
}

func TestRunner_CompletedFlaggedSendsOneAlert(t *testing.T) {
	h := newHarness(t, silentSamples(10))
	h.putRecording(t, "rec-1")

	_, err := h.runner.Run(context.Background(), "rec-1", "u1")
	require.NoError(t, err)

	st, err := h.states.Load(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, state.StatusCompleted, st.Status)
	assert.True(t, st.Flagged)
	require.NotNil(t, st.Report)
	require.Len(t, st.Report.UnnaturalSilences, 1)
	assert.Equal(t, 10.0, st.Report.UnnaturalSilences[0].Duration)
	assert.Equal(t, audio.ReasonSilenceTooLong, st.Report.UnnaturalSilences[0].Reason)

	require.Equal(t, 1, h.notifier.sendCount())
	assert.Equal(t, "u1@example.com", h.notifier.recipient)
	assert.Equal(t, "rec-1", h.notifier.summary.RecordingID)
	assert.Equal(t, "Quarterly review", h.notifier.summary.Title)
	assert.Equal(t, "meeting", h.notifier.summary.Kind)
}

func TestRunner_AlertUsesOwnerRelay(t *testing.T) {
	h := newHarness(t, silentSamples(10))
	h.putRecording(t, "rec-1")
	h.prefs.Defaults.SMTP = alert.SMTPConfig{Host: "global.example.com", Port: 25, User: "alerts@example.com"}
	h.prefs.Users["u1"] = prefs.UserOverride{
		AlertRecipient: "u1@example.com",
		SMTPHost:       "relay.u1.example.com",
		SMTPUser:       "u1-alerts@example.com",
	}

	_, err := h.runner.Run(context.Background(), "rec-1", "u1")
	require.NoError(t, err)

	require.Equal(t, 1, h.notifier.sendCount())
	assert.Equal(t, "relay.u1.example.com", h.notifier.relay.Host)
	assert.Equal(t, "u1-alerts@example.com", h.notifier.relay.User)
	assert.Equal(t, 25, h.notifier.relay.Port, "unset override fields fall back to the global relay")
}

func TestRunner_AlertDisabledByPreference(t *testing.T) {
	h := newHarness(t, silentSamples(10))
	h.putRecording(t, "rec-1")
	off := false
	h.prefs.Users["u1"] = prefs.UserOverride{
		AlertRecipient: "u1@example.com",
		AlertEnabled:   &off,
	}

	_, err := h.runner.Run(context.Background(), "rec-1", "u1")
	require.NoError(t, err)

	st, _ := h.states.Load(context.Background(), "rec-1")
	assert.True(t, st.Flagged, "flagging is independent of alerting")
	assert.Equal(t, 0, h.notifier.sendCount())
}

func TestRunner_AlertFailureKeepsCompleted(t *testing.T) {
	h := newHarness(t, silentSamples(10))
	h.putRecording(t, "rec-1")
	h.notifier.sendErr = errors.New("relay down")

	_, err := h.runner.Run(context.Background(), "rec-1", "u1")
	require.NoError(t, err, "alert failure must not fail the run")

	st, err := h.states.Load(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, state.StatusCompleted, st.Status)
	assert.True(t, st.Flagged)
	assert.Empty(t, st.LastError)
}

func TestRunner_NormalizeFailureErrorsRunKeepsPriorReport(t *testing.T) {
	h := newHarness(t, voiceSamples(2))
	h.putRecording(t, "rec-1")

	// Seed a successful prior run.
	_, err := h.runner.Run(context.Background(), "rec-1", "u1")
	require.NoError(t, err)
	prior, err := h.states.Load(context.Background(), "rec-1")
	require.NoError(t, err)
	require.NotNil(t, prior.Report)

	h.engine.normalizeErr = errors.New("ffmpeg exploded")
	_, err = h.runner.Run(context.Background(), "rec-1", "u1")
	require.Error(t, err)

	var normErr *NormalizationError
	require.ErrorAs(t, err, &normErr)
	assert.Equal(t, "rec-1", normErr.RecordingID)

	st, err := h.states.Load(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, state.StatusErrored, st.Status)
	assert.Contains(t, st.LastError, "ffmpeg exploded")
	require.NotNil(t, st.Report, "prior report survives a failed run")
	assert.Equal(t, prior.Report.TotalDurationSeconds, st.Report.TotalDurationSeconds)
}

func TestRunner_MissingRecording(t *testing.T) {
	h := newHarness(t, voiceSamples(1))

	_, err := h.runner.Run(context.Background(), "ghost", "u1")
	require.Error(t, err)

	st, err := h.states.Load(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, state.StatusErrored, st.Status)
}

func TestRunner_SecondRunReplacesReport(t *testing.T) {
	h := newHarness(t, silentSamples(10))
	h.putRecording(t, "rec-1")

	_, err := h.runner.Run(context.Background(), "rec-1", "u1")
	require.NoError(t, err)

	// Re-analyze as pure voice: the report is replaced wholesale and the
	// flag clears.
	h.engine.mu.Lock()
	h.engine.samples = voiceSamples(2)
	h.engine.mu.Unlock()

	_, err = h.runner.Run(context.Background(), "rec-1", "u1")
	require.NoError(t, err)

	st, err := h.states.Load(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.False(t, st.Flagged)
	assert.Empty(t, st.Report.UnnaturalSilences)
	assert.Equal(t, 2.0, st.Report.TotalDurationSeconds)
}

// blockingEngine wraps fakeEngine so Normalize parks until released.
type blockingEngine struct {
	*fakeEngine
	startOnce sync.Once
	started   chan struct{}
	release   chan struct{}
}

func (e *blockingEngine) Normalize(ctx context.Context, path string) (string, error) {
	e.startOnce.Do(func() { close(e.started) })
	<-e.release
	return e.fakeEngine.Normalize(ctx, path)
}

func TestRunner_ConcurrentRunRejected(t *testing.T) {
	h := newHarness(t, voiceSamples(1))
	h.putRecording(t, "rec-1")

	engine := &blockingEngine{
		fakeEngine: h.engine,
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	h.runner = NewRunner(h.recordings, h.states, engine, h.prefs, WithNotifier(h.notifier))

	done := make(chan error, 1)
	go func() {
		_, err := h.runner.Run(context.Background(), "rec-1", "u1")
		done <- err
	}()

	<-engine.started
	_, err := h.runner.Run(context.Background(), "rec-1", "u1")
	assert.ErrorIs(t, err, ErrAlreadyProcessing)

	close(engine.release)
	require.NoError(t, <-done)

	// The token is free again once the first run finishes.
	_, err = h.runner.Run(context.Background(), "rec-1", "u1")
	require.NoError(t, err)
}

// spanCapturingStore records the trace span active when each status is saved.
type spanCapturingStore struct {
	state.Store
	mu    sync.Mutex
	saved map[state.Status]trace.SpanContext
}

func (s *spanCapturingStore) Save(ctx context.Context, st *state.RecordingAnalysisState) error {
	s.mu.Lock()
	s.saved[st.Status] = trace.SpanContextFromContext(ctx)
	s.mu.Unlock()
	return s.Store.Save(ctx, st)
}

func TestRunner_StageWorkRunsUnderStageSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	h := newHarness(t, voiceSamples(1))
	h.putRecording(t, "rec-1")
	capture := &spanCapturingStore{Store: h.states, saved: make(map[state.Status]trace.SpanContext)}
	h.runner = NewRunner(h.recordings, capture, h.engine, h.prefs, WithNotifier(h.notifier))

	_, err := h.runner.Run(context.Background(), "rec-1", "u1")
	require.NoError(t, err)

	byName := make(map[string]sdktrace.ReadOnlySpan)
	for _, s := range recorder.Ended() {
		byName[s.Name()] = s
	}
	require.Contains(t, byName, "analysis.run")

	for status, stage := range map[state.Status]string{
		state.StatusNormalizing: "analysis.normalize",
		state.StatusSegmenting:  "analysis.segment",
		state.StatusClassifying: "analysis.classify",
	} {
		span, ok := byName[stage]
		require.True(t, ok, "missing %s span", stage)
		assert.Equal(t, byName["analysis.run"].SpanContext().SpanID(), span.Parent().SpanID(),
			"%s should nest under the run span", stage)
		assert.Equal(t, span.SpanContext().SpanID(), capture.saved[status].SpanID(),
			"the %s transition should be saved under the %s span", status, stage)
	}
}

func TestRunner_DifferentRecordingsDontContend(t *testing.T) {
	h := newHarness(t, voiceSamples(1))
	h.putRecording(t, "rec-1")
	h.putRecording(t, "rec-2")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"rec-1", "rec-2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = h.runner.Run(context.Background(), id, "u1")
		}(i, id)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
}
