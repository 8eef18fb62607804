package audio

// AnalysisSampleRate is the canonical sample rate for voice-activity
// analysis. Every recording is resampled to this rate before framing.
const AnalysisSampleRate = 16000

// CanonicalAudio is the mono 16-bit PCM representation a single analysis
// run operates on. It is a transient value: produced by the normalizer,
// consumed by the segmenter, and discarded when the run completes.
type CanonicalAudio struct {
	// SampleRate is the rate of Samples in Hz.
	SampleRate int

	// Samples holds the mono PCM stream.
	Samples []int16
}

// Duration returns the total length in seconds, computed directly from the
// sample count so it is exact regardless of frame boundaries.
func (c *CanonicalAudio) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// NumSamples returns the total sample count.
func (c *CanonicalAudio) NumSamples() int {
	return len(c.Samples)
}
