package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/SonixLabs/SilenceKit/logger"
)

// DefaultMaxConcurrentRuns bounds the dispatcher's worker pool.
const DefaultMaxConcurrentRuns = 4

// Dispatcher schedules analysis runs onto a bounded worker pool.
// Schedule is fire-and-forget: callers get an acknowledgement (the run ID)
// and poll the state store for progress. Duplicate requests for an
// in-flight recording are rejected synchronously.
type Dispatcher struct {
	runner *Runner
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the runner with at most
// maxConcurrent runs in flight. Zero or negative falls back to
// DefaultMaxConcurrentRuns.
func NewDispatcher(runner *Runner, maxConcurrent int) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	return &Dispatcher{
		runner: runner,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Schedule queues an analysis run and returns its run ID immediately.
// The recording's run token is taken before returning, so a duplicate
// Schedule fails with ErrAlreadyProcessing even while the run is still
// waiting for a worker slot.
func (d *Dispatcher) Schedule(recordingID, ownerID string) (string, error) {
	if err := d.runner.acquire(recordingID); err != nil {
		return "", err
	}

	runID := uuid.NewString()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.runner.release(recordingID)

		ctx := context.Background()
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer d.sem.Release(1)

		// Outcome lands in the state store; the error is already logged
		// and persisted by the runner.
		_ = d.runner.process(ctx, recordingID, ownerID, runID)
	}()
	return runID, nil
}

// Wait blocks until all scheduled runs have finished. Intended for shutdown
// and tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// scheduleLocked launches a run for a recording whose token the caller
// already holds; the goroutine releases it. Used by Trim to chain the
// re-analysis onto the same token.
func (d *Dispatcher) scheduleLocked(recordingID, ownerID, runID string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.runner.release(recordingID)

		ctx := context.Background()
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer d.sem.Release(1)

		if err := d.runner.process(ctx, recordingID, ownerID, runID); err != nil {
			logger.Error("re-analysis after trim failed", "recording_id", recordingID, "run_id", runID, "error", err)
		}
	}()
}
