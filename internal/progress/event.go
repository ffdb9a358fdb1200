// Package progress defines the event stream emitted during a harvest.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageHarvestStart Stage = "HARVEST_START"
	StageHarvestDone  Stage = "HARVEST_DONE"
	StageFetchDone    Stage = "FETCH_DONE"
	StageFetchFail    Stage = "FETCH_FAIL"
)

// Event captures a single harvest milestone.
type Event struct {
	// RunID uniquely identifies one harvest run.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Series names the bulletin series being harvested.
	Series string
	// Version is the version identifier for fetch events, 0 otherwise.
	Version int
	// Bytes carries the payload size for successful fetches.
	Bytes int64
	// Dur captures wall-clock latency for fetches and run completions.
	Dur time.Duration
	// Attempts counts how many network attempts the fetch consumed.
	Attempts int
	// FailKind classifies FETCH_FAIL events.
	FailKind FailKind
	// Note carries low-volume context such as error text.
	Note string
}

// FailKind is a coarse classification of fetch failures.
type FailKind string

// Supported failure kinds.
const (
	FailNetwork         FailKind = "network_error"
	FailContentNotFound FailKind = "content_not_found"
)

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageHarvestStart, StageHarvestDone:
	case StageFetchDone:
		if e.Version <= 0 {
			return errors.New("fetch events require a positive version")
		}
	case StageFetchFail:
		if e.Version <= 0 {
			return errors.New("fetch events require a positive version")
		}
		if e.FailKind == "" {
			return errors.New("fetch failure requires a kind")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
