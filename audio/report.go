package audio

import "math"

// ReasonSilenceTooLong is the fixed cause attached to every flagged silence.
const ReasonSilenceTooLong = "silence too long"

// DefaultSilenceThreshold is the minimum silence duration in seconds that
// counts as unnatural when a caller has no per-user preference.
const DefaultSilenceThreshold = 5.0

// Interval is one segment in a VadReport, with its duration denormalized
// into the document for consumers that render the report directly.
type Interval struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// UnnaturalSilence is a silence interval whose duration met the caller's
// threshold. It is derived from the report's silence segments, never a
// separate source of truth.
type UnnaturalSilence struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Reason   string  `json:"reason"`
}

// VadReport is the durable output of one analysis run. It is regenerated
// wholesale on every run; a prior report is only ever replaced.
type VadReport struct {
	VoiceSegments        []Interval         `json:"voice_segments"`
	SilenceSegments      []Interval         `json:"silence_segments"`
	TotalSilenceSeconds  float64            `json:"total_silence_seconds"`
	TotalDurationSeconds float64            `json:"total_duration_seconds"`
	SilencePercentage    float64            `json:"silence_percentage"`
	VoiceSegmentCount    int                `json:"voice_segments_count"`
	SilenceSegmentCount  int                `json:"silence_segments_count"`
	UnnaturalSilences    []UnnaturalSilence `json:"unnatural_silences,omitempty"`
}

// BuildReport derives a VadReport from a segmentation run. totalDuration is
// the canonical audio's exact duration, which also covers the empty-stream
// case where segmentation produced nothing.
func BuildReport(segments []Segment, totalDuration float64) *VadReport {
	report := &VadReport{
		VoiceSegments:        []Interval{},
		SilenceSegments:      []Interval{},
		TotalDurationSeconds: totalDuration,
	}

	for _, seg := range segments {
		interval := Interval{Start: seg.Start, End: seg.End, Duration: seg.DurationSeconds()}
		switch seg.Class {
		case Voice:
			report.VoiceSegments = append(report.VoiceSegments, interval)
		case Silence:
			report.SilenceSegments = append(report.SilenceSegments, interval)
			report.TotalSilenceSeconds += interval.Duration
		}
	}

	report.VoiceSegmentCount = len(report.VoiceSegments)
	report.SilenceSegmentCount = len(report.SilenceSegments)
	if totalDuration > 0 {
		report.SilencePercentage = round2(report.TotalSilenceSeconds / totalDuration * 100)
	}
	return report
}

// DetectUnnaturalSilences returns the silence segments whose duration meets
// the threshold, each tagged with ReasonSilenceTooLong. The comparison is
// inclusive (duration >= threshold flags). Pure function; a nil report or
// empty silence list yields an empty result.
func DetectUnnaturalSilences(report *VadReport, threshold float64) []UnnaturalSilence {
	if report == nil {
		return nil
	}
	var flagged []UnnaturalSilence
	for _, silence := range report.SilenceSegments {
		if silence.Duration >= threshold {
			flagged = append(flagged, UnnaturalSilence{
				Start:    silence.Start,
				End:      silence.End,
				Duration: silence.Duration,
				Reason:   ReasonSilenceTooLong,
			})
		}
	}
	return flagged
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
