package audio

import (
	"math"
	"testing"
)

func TestBuildReport_FullySilent(t *testing.T) {
	s := newTestSegmenter(t)
	stream := pcm(block(60, Silence))

	report := BuildReport(s.Segment(stream), stream.Duration())

	if report.SilenceSegmentCount != 1 || report.VoiceSegmentCount != 0 {
		t.Fatalf("got %d silence / %d voice segments, want 1 / 0",
			report.SilenceSegmentCount, report.VoiceSegmentCount)
	}
	if report.TotalSilenceSeconds != 60 {
		t.Errorf("TotalSilenceSeconds = %v, want 60", report.TotalSilenceSeconds)
	}
	if report.SilencePercentage != 100 {
		t.Errorf("SilencePercentage = %v, want 100", report.SilencePercentage)
	}

	flagged := DetectUnnaturalSilences(report, DefaultSilenceThreshold)
	if len(flagged) != 1 {
		t.Fatalf("got %d unnatural silences, want 1", len(flagged))
	}
	if flagged[0].Start != 0 || flagged[0].End != 60 || flagged[0].Reason != ReasonSilenceTooLong {
		t.Errorf("got %+v, want [0,60) with reason %q", flagged[0], ReasonSilenceTooLong)
	}
}

func TestBuildReport_PercentageIdentity(t *testing.T) {
	s := newTestSegmenter(t)
	stream := pcm(block(3, Voice), block(7, Silence), block(2, Voice), block(4, Silence))

	report := BuildReport(s.Segment(stream), stream.Duration())

	want := round2(report.TotalSilenceSeconds / report.TotalDurationSeconds * 100)
	if report.SilencePercentage != want {
		t.Errorf("SilencePercentage = %v, want %v", report.SilencePercentage, want)
	}
	if report.TotalSilenceSeconds <= 0 || report.TotalSilenceSeconds >= report.TotalDurationSeconds {
		t.Errorf("TotalSilenceSeconds = %v out of expected range", report.TotalSilenceSeconds)
	}

	var sum float64
	for _, seg := range report.SilenceSegments {
		sum += seg.Duration
	}
	if math.Abs(sum-report.TotalSilenceSeconds) > 1e-9 {
		t.Errorf("silence durations sum to %v, report says %v", sum, report.TotalSilenceSeconds)
	}
}

func TestBuildReport_ZeroDuration(t *testing.T) {
	report := BuildReport(nil, 0)

	if report.SilencePercentage != 0 {
		t.Errorf("SilencePercentage = %v, want 0 for empty stream", report.SilencePercentage)
	}
	if report.TotalDurationSeconds != 0 || report.TotalSilenceSeconds != 0 {
		t.Errorf("totals = %v/%v, want 0/0",
			report.TotalSilenceSeconds, report.TotalDurationSeconds)
	}
	if report.VoiceSegments == nil || report.SilenceSegments == nil {
		t.Error("segment lists should be empty, not nil, for a stable document shape")
	}
}

func TestDetectUnnaturalSilences_InclusiveThreshold(t *testing.T) {
	report := &VadReport{
		SilenceSegments: []Interval{
			{Start: 0, End: 5, Duration: 5},
			{Start: 10, End: 14.9, Duration: 4.9},
		},
	}

	flagged := DetectUnnaturalSilences(report, 5.0)
	if len(flagged) != 1 {
		t.Fatalf("got %d flagged, want 1 (comparison is inclusive)", len(flagged))
	}
	if flagged[0].Duration != 5 {
		t.Errorf("flagged duration = %v, want 5", flagged[0].Duration)
	}
}

// Raising the threshold never grows the flagged set.
func TestDetectUnnaturalSilences_MonotonicInThreshold(t *testing.T) {
	report := &VadReport{
		SilenceSegments: []Interval{
			{Start: 0, End: 2, Duration: 2},
			{Start: 5, End: 11, Duration: 6},
			{Start: 20, End: 33, Duration: 13},
		},
	}

	prev := len(DetectUnnaturalSilences(report, 0))
	for _, threshold := range []float64{1, 2, 5, 6, 10, 13, 14} {
		n := len(DetectUnnaturalSilences(report, threshold))
		if n > prev {
			t.Errorf("threshold %v flagged %d > %d at lower threshold", threshold, n, prev)
		}
		prev = n
	}
}

func TestDetectUnnaturalSilences_EmptyInputs(t *testing.T) {
	if got := DetectUnnaturalSilences(nil, 5); got != nil {
		t.Errorf("nil report: got %v, want nil", got)
	}
	if got := DetectUnnaturalSilences(&VadReport{}, 5); got != nil {
		t.Errorf("empty report: got %v, want nil", got)
	}
}

// The 2s-alternating pattern from the acceptance checklist: 30 segments,
// nothing flagged at the default threshold.
func TestAlternatingPatternNotFlagged(t *testing.T) {
	s := newTestSegmenter(t)

	blocks := make([]struct {
		secs  float64
		class Class
	}, 0, 30)
	for i := 0; i < 30; i++ {
		class := Voice
		if i%2 == 1 {
			class = Silence
		}
		blocks = append(blocks, block(2, class))
	}
	stream := pcm(blocks...)

	report := BuildReport(s.Segment(stream), stream.Duration())
	if report.VoiceSegmentCount+report.SilenceSegmentCount != 30 {
		t.Fatalf("got %d segments, want 30",
			report.VoiceSegmentCount+report.SilenceSegmentCount)
	}
	if flagged := DetectUnnaturalSilences(report, DefaultSilenceThreshold); len(flagged) != 0 {
		t.Errorf("got %d unnatural silences, want 0", len(flagged))
	}
}
