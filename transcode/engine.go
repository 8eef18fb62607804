// Package transcode is the normalizer adapter: a thin contract over an
// external transcoding engine that converts arbitrary recorded audio into
// the canonical analysis format (mono 16-bit PCM WAV at 16 kHz), probes
// source metadata, and cuts sub-ranges for trim operations.
package transcode

import (
	"context"
	"errors"
)

// Adapter failure taxonomy. The pipeline maps these onto its own error
// reporting; none of them are retried automatically.
var (
	// ErrUnsupportedFormat indicates the container or codec cannot be decoded.
	ErrUnsupportedFormat = errors.New("transcode: unsupported format")

	// ErrIOFailure indicates the source file is unreadable.
	ErrIOFailure = errors.New("transcode: source unreadable")

	// ErrTranscodeFailure covers any other engine error.
	ErrTranscodeFailure = errors.New("transcode: engine failure")
)

// Info is the source metadata reported by Probe.
type Info struct {
	// SampleRate is the source stream's sample rate in Hz.
	SampleRate int

	// Duration is the source duration in seconds.
	Duration float64
}

// Engine is the narrow contract the analysis pipeline depends on. The
// engine's internals (codec handling, container parsing) are not part of
// the core; any implementation producing canonical WAV output satisfies it.
//
// All calls honor context cancellation and deadlines. The pipeline passes
// a caller-configured timeout through ctx; implementations must not impose
// hidden timeouts of their own.
type Engine interface {
	// Normalize converts the source file into canonical analysis audio
	// (mono, 16-bit PCM, 16 kHz WAV) and returns the path of the result.
	Normalize(ctx context.Context, path string) (string, error)

	// Probe reports the source's sample rate and duration.
	Probe(ctx context.Context, path string) (Info, error)

	// Cut re-encodes the half-open range [start, end) seconds of the source
	// into a new file of the same format and returns its path. Range
	// validation is the caller's responsibility.
	Cut(ctx context.Context, path string, start, end float64) (string, error)
}
