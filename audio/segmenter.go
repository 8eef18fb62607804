package audio

import "math"

// DefaultFrameDuration is the reference analysis frame length in seconds.
const DefaultFrameDuration = 0.030

// Segment is a maximal run of same-class consecutive frames, expressed as a
// half-open time interval in seconds from the start of the recording.
type Segment struct {
	Start float64
	End   float64
	Class Class
}

// DurationSeconds returns the segment length in seconds.
func (s Segment) DurationSeconds() float64 {
	return s.End - s.Start
}

// Segmenter slices canonical audio into fixed-duration frames, classifies
// each frame, and merges consecutive same-class frames into segments.
type Segmenter struct {
	// FrameDuration is the analysis frame length in seconds.
	// Zero means DefaultFrameDuration.
	FrameDuration float64

	// Classifier decides voice/silence per frame.
	Classifier FrameClassifier
}

// NewSegmenter creates a Segmenter with the reference frame duration.
func NewSegmenter(classifier FrameClassifier) *Segmenter {
	return &Segmenter{FrameDuration: DefaultFrameDuration, Classifier: classifier}
}

// Segment partitions the canonical stream into frames, classifies each full
// frame, and returns the merged segment sequence. The output is contiguous,
// non-overlapping, class-alternating, and ends exactly at c.Duration(): a
// trailing partial frame is never classified, but its time range is folded
// into whichever segment is open at end-of-stream.
//
// A stream shorter than one frame yields no segments.
func (s *Segmenter) Segment(c *CanonicalAudio) []Segment {
	frameDuration := s.FrameDuration
	if frameDuration == 0 {
		frameDuration = DefaultFrameDuration
	}
	frameLen := int(math.Round(float64(c.SampleRate) * frameDuration))
	if frameLen <= 0 || len(c.Samples) < frameLen {
		return nil
	}

	var (
		segments []Segment
		open     Class
		start    float64
	)

	for i := 0; i+frameLen <= len(c.Samples); i += frameLen {
		class := s.Classifier.Classify(c.Samples[i:i+frameLen], c.SampleRate)
		frameStart := float64(i) / float64(c.SampleRate)

		if i == 0 {
			// First frame opens the first segment at time zero.
			open = class
			start = 0
			continue
		}
		if class != open {
			segments = append(segments, Segment{Start: start, End: frameStart, Class: open})
			open = class
			start = frameStart
		}
	}

	// Close the open segment at the exact total duration, not at the last
	// frame boundary, so the sequence is exhaustive and gapless.
	segments = append(segments, Segment{Start: start, End: c.Duration(), Class: open})
	return segments
}
