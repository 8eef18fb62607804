// Package storage defines the recording-store contract the analysis
// pipeline depends on. Implementations keep the audio payload and a
// metadata document per recording; the pipeline never touches the payload
// except through this interface.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a recording doesn't exist in the store.
var ErrNotFound = errors.New("recording not found")

// RecordingStore stores recording payloads and their metadata documents.
//
// Payloads are exchanged as filesystem paths because the transcoding engine
// operates on files; object-backed implementations materialize a local copy
// on GetAudio.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type RecordingStore interface {
	// Put ingests a recording: the payload at audioPath plus its metadata.
	// An existing recording with the same ID is replaced.
	Put(ctx context.Context, id string, audioPath string, md RecordingMetadata) error

	// GetAudio returns a readable local path for the recording's payload
	// and its declared container format.
	GetAudio(ctx context.Context, id string) (path string, format string, err error)

	// ReplaceAudio swaps the recording's payload for the file at newPath.
	// Metadata other than the payload is untouched; callers update duration
	// separately via SetMetadata.
	ReplaceAudio(ctx context.Context, id string, newPath string) error

	// GetMetadata returns the recording's metadata document.
	GetMetadata(ctx context.Context, id string) (RecordingMetadata, error)

	// SetMetadata replaces the recording's metadata document.
	SetMetadata(ctx context.Context, id string, md RecordingMetadata) error

	// Delete removes the payload and metadata. Deleting the payload is
	// best-effort: a missing file is not an error as long as the metadata
	// record is removed.
	Delete(ctx context.Context, id string) error

	// ListExpired returns the IDs of recordings whose retention deadline
	// is before now.
	ListExpired(ctx context.Context, now time.Time) ([]string, error)
}
