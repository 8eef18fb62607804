package audio

import (
	"testing"
)

func TestClass_String(t *testing.T) {
	tests := []struct {
		class Class
		want  string
	}{
		{Silence, "silence"},
		{Voice, "voice"},
		{Class(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.class.String(); got != tt.want {
				t.Errorf("Class.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEnergyClassifier_Validation(t *testing.T) {
	for _, level := range []int{0, 1, 2, 3} {
		if _, err := NewEnergyClassifier(level); err != nil {
			t.Errorf("NewEnergyClassifier(%d) error = %v, want nil", level, err)
		}
	}
	for _, level := range []int{-1, 4, 100} {
		if _, err := NewEnergyClassifier(level); err == nil {
			t.Errorf("NewEnergyClassifier(%d) error = nil, want validation error", level)
		}
	}
}

func TestEnergyClassifier_Classify(t *testing.T) {
	clf, err := NewEnergyClassifier(DefaultSensitivity)
	if err != nil {
		t.Fatalf("NewEnergyClassifier: %v", err)
	}

	loud := constantFrame(8000, 480)
	quiet := constantFrame(0, 480)

	if got := clf.Classify(loud, AnalysisSampleRate); got != Voice {
		t.Errorf("Classify(loud) = %v, want Voice", got)
	}
	if got := clf.Classify(quiet, AnalysisSampleRate); got != Silence {
		t.Errorf("Classify(quiet) = %v, want Silence", got)
	}
	if got := clf.Classify(nil, AnalysisSampleRate); got != Silence {
		t.Errorf("Classify(empty) = %v, want Silence", got)
	}
}

// Raising sensitivity may only move frames from voice to silence, never the
// other way.
func TestEnergyClassifier_SensitivityOrdering(t *testing.T) {
	// Amplitude chosen between the level-1 and level-2 RMS thresholds.
	borderline := constantFrame(500, 480)

	var classes []Class
	for level := MinSensitivity; level <= MaxSensitivity; level++ {
		clf, err := NewEnergyClassifier(level)
		if err != nil {
			t.Fatalf("NewEnergyClassifier(%d): %v", level, err)
		}
		classes = append(classes, clf.Classify(borderline, AnalysisSampleRate))
	}

	for i := 1; i < len(classes); i++ {
		if classes[i-1] == Silence && classes[i] == Voice {
			t.Errorf("sensitivity %d classified silence but %d classified voice", i-1, i)
		}
	}
	if classes[0] != Voice {
		t.Errorf("least aggressive level should accept borderline frame as voice, got %v", classes[0])
	}
	if classes[MaxSensitivity] != Silence {
		t.Errorf("most aggressive level should reject borderline frame, got %v", classes[MaxSensitivity])
	}
}

func TestEnergyClassifier_Deterministic(t *testing.T) {
	clf, _ := NewEnergyClassifier(1)
	frame := constantFrame(400, 480)

	first := clf.Classify(frame, AnalysisSampleRate)
	for i := 0; i < 10; i++ {
		if got := clf.Classify(frame, AnalysisSampleRate); got != first {
			t.Fatalf("classification changed between calls: %v then %v", first, got)
		}
	}
}

func constantFrame(amplitude int16, n int) []int16 {
	frame := make([]int16, n)
	for i := range frame {
		frame[i] = amplitude
	}
	return frame
}
