// Package harvest coordinates the concurrent retrieval of every version of a
// bulletin series and reassembles the results into one ordered transcript.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/msmolkin/nwsharvest/internal/fetch"
	"github.com/msmolkin/nwsharvest/internal/metrics"
	"github.com/msmolkin/nwsharvest/internal/progress"
	"github.com/msmolkin/nwsharvest/internal/throughput"
)

// Fetcher retrieves one version of the target series.
type Fetcher interface {
	Fetch(ctx context.Context, version int) fetch.Outcome
}

// Config controls coordinator behavior.
type Config struct {
	// SeriesName labels progress events and log lines.
	SeriesName string
	// Workers is the requested pool size; 0 derives it from the CPU count.
	Workers int
	// WorkerCap bounds the pool size; 0 applies the default ceiling.
	WorkerCap int
}

// Result is the finalized product of one harvest run.
type Result struct {
	RunID     uuid.UUID
	Set       map[int]string
	Succeeded int
	Failed    int
	Stats     throughput.Stats
	Elapsed   time.Duration
}

// Transcript assembles the result set into the final ordered transcript.
func (r Result) Transcript() Transcript {
	return Assemble(r.Set)
}

// Coordinator owns the bounded worker pool for a harvest run. Workers share
// no state; outcomes flow over a channel to a single aggregator goroutine
// that owns the result set and forwards every outcome to the tracker.
type Coordinator struct {
	cfg     Config
	fetcher Fetcher
	tracker *throughput.Tracker
	emitter progress.Emitter
	logger  *zap.Logger
}

// New builds a Coordinator. The tracker and emitter may be nil when the
// caller wants no accounting.
func New(cfg Config, fetcher Fetcher, tracker *throughput.Tracker, emitter progress.Emitter, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		cfg:     cfg,
		fetcher: fetcher,
		tracker: tracker,
		emitter: emitter,
		logger:  logger,
	}
}

// Run dispatches exactly one fetch task per version in [1, maxVersion] and
// blocks until every dispatched task has settled. Per-version failures are
// recorded and never abort sibling tasks; a run with zero successes is still
// a completed run. Canceling ctx stops dispatching new versions and lets
// in-flight fetches drain before Run returns the partial result.
func (c *Coordinator) Run(ctx context.Context, maxVersion int) (Result, error) {
	if maxVersion < 1 {
		return Result{}, fmt.Errorf("harvest requires at least one version, got %d", maxVersion)
	}

	runID := uuid.New()
	start := time.Now()
	workers := WorkerCount(c.cfg.Workers, c.cfg.WorkerCap)

	if c.tracker != nil {
		c.tracker.Begin(maxVersion)
	}
	c.emit(progress.Event{
		RunID:  runID,
		TS:     time.Now().UTC(),
		Stage:  progress.StageHarvestStart,
		Series: c.cfg.SeriesName,
	})
	c.logger.Info("harvest started",
		zap.String("series", c.cfg.SeriesName),
		zap.Int("versions", maxVersion),
		zap.Int("workers", workers),
	)

	versions := make(chan int)
	outcomes := make(chan fetch.Outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range versions {
				metrics.IncActiveWorkers()
				out := c.safeFetch(ctx, v)
				metrics.DecActiveWorkers()
				outcomes <- out
			}
		}()
	}

	// Dispatcher: each identifier is sent exactly once; cancellation stops
	// dispatch but already-sent versions keep draining through the pool.
	go func() {
		defer close(versions)
		for v := 1; v <= maxVersion; v++ {
			select {
			case versions <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Aggregator: sole owner of the result set.
	result := Result{RunID: runID, Set: make(map[int]string, maxVersion)}
	for out := range outcomes {
		c.settle(runID, out, &result)
	}

	result.Elapsed = time.Since(start)
	if c.tracker != nil {
		result.Stats = c.tracker.Snapshot()
	}

	c.emit(progress.Event{
		RunID:  runID,
		TS:     time.Now().UTC(),
		Stage:  progress.StageHarvestDone,
		Series: c.cfg.SeriesName,
		Dur:    result.Elapsed,
	})
	c.logger.Info("harvest finished",
		zap.String("series", c.cfg.SeriesName),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", result.Elapsed),
	)

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("harvest interrupted: %w", err)
	}
	return result, nil
}

func (c *Coordinator) settle(runID uuid.UUID, out fetch.Outcome, result *Result) {
	if c.tracker != nil {
		c.tracker.Observe(out)
	}

	if !out.OK() {
		result.Failed++
		c.logger.Warn("version fetch failed",
			zap.String("series", c.cfg.SeriesName),
			zap.Int("version", out.Version),
			zap.Error(out.Err),
		)
		c.emit(progress.Event{
			RunID:    runID,
			TS:       time.Now().UTC(),
			Stage:    progress.StageFetchFail,
			Series:   c.cfg.SeriesName,
			Version:  out.Version,
			Attempts: out.Attempts,
			FailKind: classify(out.Err),
			Note:     out.Err.Error(),
		})
		return
	}

	if _, dup := result.Set[out.Version]; dup {
		// Exactly-once insertion; duplicates indicate a fetcher bug.
		c.logger.Error("duplicate outcome discarded", zap.Int("version", out.Version))
		return
	}
	result.Set[out.Version] = out.Content
	result.Succeeded++

	c.emit(progress.Event{
		RunID:    runID,
		TS:       time.Now().UTC(),
		Stage:    progress.StageFetchDone,
		Series:   c.cfg.SeriesName,
		Version:  out.Version,
		Bytes:    int64(out.Bytes),
		Dur:      out.Elapsed,
		Attempts: out.Attempts,
	})
}

// safeFetch converts a panicking fetch task into a failed outcome for that
// version, so one faulty task can never take down its siblings.
func (c *Coordinator) safeFetch(ctx context.Context, version int) (out fetch.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("fetch task fault",
				zap.String("series", c.cfg.SeriesName),
				zap.Int("version", version),
				zap.Any("fault", r),
			)
			out = fetch.Outcome{
				Version: version,
				Err:     fmt.Errorf("version %d: fetch task fault: %v", version, r),
			}
		}
	}()
	return c.fetcher.Fetch(ctx, version)
}

func (c *Coordinator) emit(evt progress.Event) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(evt)
}

func classify(err error) progress.FailKind {
	if errors.Is(err, fetch.ErrContentNotFound) {
		return progress.FailContentNotFound
	}
	return progress.FailNetwork
}
