package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SonixLabs/SilenceKit/logger"
	"github.com/SonixLabs/SilenceKit/metrics/prometheus"
	"github.com/SonixLabs/SilenceKit/pipeline/state"
	"github.com/SonixLabs/SilenceKit/storage"
)

// DefaultSweepInterval is how often the background sweeper runs.
const DefaultSweepInterval = time.Hour

// Sweeper removes recordings whose retention deadline has passed, together
// with their analysis state.
type Sweeper struct {
	recordings storage.RecordingStore
	states     state.Store

	// Interval between background sweeps. Zero falls back to
	// DefaultSweepInterval.
	Interval time.Duration
}

// NewSweeper creates a retention sweeper over the given stores.
func NewSweeper(recordings storage.RecordingStore, states state.Store) *Sweeper {
	return &Sweeper{recordings: recordings, states: states}
}

// Sweep deletes every recording expired as of now and returns how many were
// removed. Payload deletion is best-effort inside the store; metadata and
// analysis state go regardless. An empty expiry list is a zero-count no-op.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.recordings.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired recordings: %w", err)
	}

	deleted := 0
	for _, id := range expired {
		if err := s.recordings.Delete(ctx, id); err != nil {
			logger.Warn("failed to delete expired recording", "recording_id", id, "error", err)
			continue
		}
		if err := s.states.Delete(ctx, id); err != nil && !errors.Is(err, state.ErrNotFound) {
			logger.Warn("failed to delete analysis state", "recording_id", id, "error", err)
		}
		deleted++
	}

	if deleted > 0 {
		logger.Info("retention sweep finished", "deleted", deleted, "expired", len(expired))
	}
	prometheus.RecordSweepDeleted(deleted)
	return deleted, nil
}

// Start runs Sweep on a ticker until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := s.Sweep(ctx, now); err != nil {
				logger.Error("retention sweep failed", "error", err)
			}
		}
	}
}
