package harvest

import "runtime"

// Worker pool sizing policy. Fetch tasks are I/O bound, so the pool runs a
// multiple of the CPU count, capped so the remote endpoint is not hammered.
const (
	workersPerCPU   = 5
	defaultCap      = 32
	fallbackWorkers = 5
)

// WorkerCount resolves the pool size. A positive configured value wins (still
// subject to cap); otherwise the size derives from the CPU count, falling
// back to a modest default when that cannot be determined.
func WorkerCount(configured, cap int) int {
	if cap <= 0 {
		cap = defaultCap
	}
	if configured > 0 {
		if configured > cap {
			return cap
		}
		return configured
	}
	cpus := runtime.NumCPU()
	if cpus <= 0 {
		return fallbackWorkers
	}
	workers := cpus * workersPerCPU
	if workers > cap {
		return cap
	}
	return workers
}
