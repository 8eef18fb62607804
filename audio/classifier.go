package audio

import (
	"math"
)

// Class is the binary voice-activity decision for a single frame or segment.
type Class int

const (
	// Silence indicates no voice activity.
	Silence Class = iota
	// Voice indicates detected speech.
	Voice
)

const unknownClass = "unknown"

// String returns a human-readable representation of the class.
func (c Class) String() string {
	switch c {
	case Silence:
		return "silence"
	case Voice:
		return "voice"
	default:
		return unknownClass
	}
}

// Sensitivity bounds for frame classifiers.
const (
	MinSensitivity = 0
	MaxSensitivity = 3
)

// DefaultSensitivity is the analysis aggressiveness used when a caller has
// no per-user preference.
const DefaultSensitivity = 2

// FrameClassifier decides whether a single fixed-duration frame of canonical
// PCM contains voice. Implementations must be deterministic: the same frame
// and sample rate always yield the same class, with no state carried between
// calls. The segmenter depends on this to make whole-recording analysis a
// pure function.
type FrameClassifier interface {
	// Name returns the classifier identifier.
	Name() string

	// Classify returns the voice/silence decision for one full frame.
	Classify(frame []int16, sampleRate int) Class
}

// rmsThresholds maps sensitivity levels to the normalized RMS energy a
// frame must reach to count as voice. Level 0 is the least aggressive
// (lowest bar, most frames classified as voice); level 3 the most.
var rmsThresholds = [MaxSensitivity + 1]float64{
	0.005,
	0.010,
	0.020,
	0.040,
}

// pcmMaxAmplitude is the maximum amplitude for 16-bit signed audio.
const pcmMaxAmplitude = 32768.0

// EnergyClassifier is the reference frame classifier: a frame is voice when
// its normalized RMS energy meets the threshold for the configured
// sensitivity. It is intentionally simple; callers needing model-based
// detection plug in their own FrameClassifier.
type EnergyClassifier struct {
	sensitivity int
}

// NewEnergyClassifier creates an energy-based classifier with the given
// sensitivity in [MinSensitivity, MaxSensitivity].
func NewEnergyClassifier(sensitivity int) (*EnergyClassifier, error) {
	if sensitivity < MinSensitivity || sensitivity > MaxSensitivity {
		return nil, &ValidationError{Field: "Sensitivity", Message: "must be between 0 and 3"}
	}
	return &EnergyClassifier{sensitivity: sensitivity}, nil
}

// Name returns the classifier identifier.
func (e *EnergyClassifier) Name() string {
	return "energy-rms"
}

// Sensitivity returns the configured aggressiveness level.
func (e *EnergyClassifier) Sensitivity() int {
	return e.sensitivity
}

// Classify returns Voice when the frame's normalized RMS energy meets the
// sensitivity threshold, Silence otherwise. Empty frames are silence.
func (e *EnergyClassifier) Classify(frame []int16, sampleRate int) Class {
	if rms(frame) >= rmsThresholds[e.sensitivity] {
		return Voice
	}
	return Silence
}

// rms computes the Root Mean Square of PCM samples normalized to [0,1].
func rms(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sumSquares float64
	for _, sample := range frame {
		normalized := float64(sample) / pcmMaxAmplitude
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(frame)))
}

// ValidationError represents a parameter validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}
