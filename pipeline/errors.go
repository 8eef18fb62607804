package pipeline

import (
	"errors"
	"fmt"
)

// ErrAlreadyProcessing is returned when a run or trim is requested for a
// recording that is already being processed. Concurrent requests are
// rejected, never queued.
var ErrAlreadyProcessing = errors.New("recording is already being processed")

// ErrInvalidRange is returned when a trim range is malformed: negative
// start, or start not strictly before end.
var ErrInvalidRange = errors.New("invalid trim range")

// ErrRangeExceedsDuration is returned when a trim range extends past the
// recording's current duration.
var ErrRangeExceedsDuration = errors.New("trim range exceeds recording duration")

// NormalizationError wraps a transcoding failure that halted a run before
// any analysis happened. The prior report, if any, is left untouched.
type NormalizationError struct {
	RecordingID string
	Err         error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalization failed for recording %s: %v", e.RecordingID, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }
