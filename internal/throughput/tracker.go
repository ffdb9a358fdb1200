// Package throughput accumulates fetch outcomes into speed and ETA figures.
package throughput

import (
	"sync"
	"time"

	"github.com/msmolkin/nwsharvest/internal/fetch"
)

// Tracker is a mutex-guarded accumulator of fetch outcomes. Many workers may
// report at overlapping instants; all mutation happens under one lock. The
// tracker is purely observational: it never rejects an outcome and its
// consumers must never abort a harvest on its account.
type Tracker struct {
	mu         sync.Mutex
	dispatched int
	settled    int
	successes  int
	bytes      int64
	elapsed    time.Duration
}

// Stats is a point-in-time copy of the tracker state.
type Stats struct {
	Dispatched int
	Settled    int
	Successes  int
	Bytes      int64
	Elapsed    time.Duration
}

// New builds an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

// Begin records the number of fetch tasks the harvest will dispatch.
func (t *Tracker) Begin(dispatched int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dispatched = dispatched
	t.settled = 0
	t.successes = 0
	t.bytes = 0
	t.elapsed = 0
}

// Observe ingests one settled fetch outcome. Failed fetches advance the
// settled count only; successful fetches also accumulate bytes and elapsed
// time for the speed average.
func (t *Tracker) Observe(out fetch.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settled++
	if !out.OK() {
		return
	}
	t.successes++
	t.bytes += int64(out.Bytes)
	t.elapsed += out.Elapsed
}

// Snapshot returns a consistent copy of the counters.
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		Dispatched: t.dispatched,
		Settled:    t.settled,
		Successes:  t.successes,
		Bytes:      t.bytes,
		Elapsed:    t.elapsed,
	}
}

// Pending returns the count of dispatched tasks that have not settled.
func (s Stats) Pending() int {
	pending := s.Dispatched - s.Settled
	if pending < 0 {
		return 0
	}
	return pending
}

// AvgSpeed returns the mean transfer rate in bytes per second across
// successful fetches, or 0 before the first success.
func (s Stats) AvgSpeed() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Elapsed.Seconds()
}

// ETA estimates the remaining harvest time: pending tasks multiplied by the
// mean per-fetch elapsed time. It reports 0 until the first success.
func (s Stats) ETA() time.Duration {
	if s.Successes == 0 {
		return 0
	}
	mean := s.Elapsed / time.Duration(s.Successes)
	return time.Duration(s.Pending()) * mean
}
