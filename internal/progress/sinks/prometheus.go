package sinks

import (
	"github.com/msmolkin/nwsharvest/internal/metrics"
	"github.com/msmolkin/nwsharvest/internal/progress"
)

// PrometheusSink translates progress events into Prometheus collector updates.
type PrometheusSink struct{}

// NewPrometheusSink returns the sink.
func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{}
}

// Consume updates the collectors for the event.
func (s *PrometheusSink) Consume(evt progress.Event) error {
	switch evt.Stage {
	case progress.StageHarvestStart:
		metrics.ObserveRun(evt.Series)
	case progress.StageFetchDone:
		metrics.ObserveFetch(metrics.ResultSuccess, int(evt.Bytes), evt.Dur, evt.Attempts)
	case progress.StageFetchFail:
		result := metrics.ResultNetworkError
		if evt.FailKind == progress.FailContentNotFound {
			result = metrics.ResultContentNotFound
		}
		metrics.ObserveFetch(result, 0, 0, evt.Attempts)
	case progress.StageHarvestDone:
		// Run totals derive from the per-fetch counters; nothing extra here.
	}
	return nil
}
