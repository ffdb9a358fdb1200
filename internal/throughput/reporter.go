package throughput

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Reporter periodically logs harvest progress from a Tracker. A failed or
// slow log write only costs a log line; it can never stall or abort the
// harvest itself.
type Reporter struct {
	tracker  *Tracker
	logger   *zap.Logger
	interval time.Duration
}

// NewReporter builds a Reporter. Interval defaults to 2s.
func NewReporter(tracker *Tracker, logger *zap.Logger, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{tracker: tracker, logger: logger, interval: interval}
}

// Run logs a progress line every interval until ctx finishes.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *Reporter) report() {
	stats := r.tracker.Snapshot()
	r.logger.Info("harvest progress",
		zap.Int("settled", stats.Settled),
		zap.Int("total", stats.Dispatched),
		zap.String("avg_speed", FormatSpeed(stats.AvgSpeed())),
		zap.Duration("eta", stats.ETA().Round(time.Second)),
	)
}

// FormatSpeed renders a bytes-per-second rate as a human-readable string.
func FormatSpeed(bytesPerSec float64) string {
	const (
		kb = 1024
		mb = kb * 1024
	)
	switch {
	case bytesPerSec >= mb:
		return fmt.Sprintf("%.2f MB/s", bytesPerSec/mb)
	case bytesPerSec >= kb:
		return fmt.Sprintf("%.2f KB/s", bytesPerSec/kb)
	default:
		return fmt.Sprintf("%.0f B/s", bytesPerSec)
	}
}
