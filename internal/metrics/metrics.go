// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels for the fetch counter.
const (
	ResultSuccess         = "success"
	ResultContentNotFound = "content_not_found"
	ResultNetworkError    = "network_error"
)

var (
	harvestFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nwsharvest_fetches_total",
			Help: "Total number of settled version fetches, labeled by result.",
		},
		[]string{"result"},
	)

	harvestBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nwsharvest_bytes_total",
			Help: "Total bulletin bytes fetched.",
		},
	)

	harvestRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nwsharvest_retries_total",
			Help: "Total fetch attempts beyond the first, per version.",
		},
	)

	harvestFetchDurationSecs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nwsharvest_fetch_duration_seconds",
			Help:    "Histogram of successful fetch latencies.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	harvestActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nwsharvest_active_workers",
			Help: "Number of workers currently fetching a version.",
		},
	)

	harvestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nwsharvest_runs_total",
			Help: "Total harvest runs, labeled by series.",
		},
		[]string{"series"},
	)

	httpRequestDurationSecs = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nwsharvest_http_request_duration_seconds",
			Help:    "Histogram of status endpoint request latencies.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Handler returns an http.Handler exposing the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one settled fetch.
func ObserveFetch(result string, bytesFetched int, duration time.Duration, attempts int) {
	harvestFetchesTotal.WithLabelValues(result).Inc()
	if bytesFetched > 0 {
		harvestBytesTotal.Add(float64(bytesFetched))
	}
	if result == ResultSuccess {
		harvestFetchDurationSecs.Observe(duration.Seconds())
	}
	if attempts > 1 {
		harvestRetriesTotal.Add(float64(attempts - 1))
	}
}

// ObserveRun increments the harvest run counter for the series.
func ObserveRun(seriesName string) {
	harvestRunsTotal.WithLabelValues(seriesName).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	harvestActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	harvestActiveWorkers.Dec()
}

// ObserveHTTPRequest records one status endpoint request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestDurationSecs.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
