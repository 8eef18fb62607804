package storage

import "time"

// RecordingMetadata is the durable per-recording document. The pipeline
// writes SampleRate and DurationSeconds after normalization; everything
// else is owned by the uploading collaborator.
type RecordingMetadata struct {
	// Title is the user-facing name, may be empty.
	Title string `json:"title,omitempty"`

	// Kind describes the recording type (e.g. "broadcast", "interview").
	Kind string `json:"kind,omitempty"`

	// OwnerID identifies the user owning the recording. Opaque to the core.
	OwnerID string `json:"owner_id,omitempty"`

	// Format is the declared container format of the stored payload
	// (file extension without the dot, e.g. "wav", "mp3").
	Format string `json:"format"`

	// SampleRate is the source sample rate in Hz, written by the pipeline
	// after normalization succeeds. Zero until first analysis.
	SampleRate int `json:"sample_rate,omitempty"`

	// DurationSeconds is the payload duration, written after normalization
	// and updated by trim operations.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`

	// CreatedAt is when the recording was ingested.
	CreatedAt time.Time `json:"created_at"`

	// RetainedUntil is the retention deadline; nil means retain forever.
	RetainedUntil *time.Time `json:"retained_until,omitempty"`
}

// Expired reports whether the retention deadline has passed at the given
// instant. Recordings without a deadline never expire.
func (m RecordingMetadata) Expired(now time.Time) bool {
	return m.RetainedUntil != nil && m.RetainedUntil.Before(now)
}
