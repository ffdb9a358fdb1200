package harvest

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkerCountConfiguredWins(t *testing.T) {
	t.Parallel()

	require.Equal(t, 3, WorkerCount(3, 32))
	require.Equal(t, 1, WorkerCount(1, 32))
}

func TestWorkerCountCapApplies(t *testing.T) {
	t.Parallel()

	require.Equal(t, 32, WorkerCount(100, 32))
	require.Equal(t, 8, WorkerCount(100, 8))
}

func TestWorkerCountDerivedFromCPU(t *testing.T) {
	t.Parallel()

	derived := WorkerCount(0, 32)
	expected := runtime.NumCPU() * workersPerCPU
	if expected > 32 {
		expected = 32
	}
	require.Equal(t, expected, derived)
	require.LessOrEqual(t, derived, 32)
	require.Positive(t, derived)
}

func TestWorkerCountDefaultCap(t *testing.T) {
	t.Parallel()

	require.Equal(t, defaultCap, WorkerCount(1000, 0))
}
