package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/msmolkin/nwsharvest/internal/progress"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(series string, startedAt time.Time) Run {
	return Run{
		ID:         uuid.New(),
		Series:     series,
		MaxVersion: 48,
		Succeeded:  46,
		Failed:     2,
		Bytes:      128_000,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(30 * time.Second),
	}
}

func TestRecordAndListRuns(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, time.August, 1, 12, 0, 0, 0, time.UTC)
	older := sampleRun("New York (Central Park)", base)
	newer := sampleRun("Chicago (Midway)", base.Add(time.Hour))

	require.NoError(t, s.RecordRun(ctx, older))
	require.NoError(t, s.RecordRun(ctx, newer))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	require.Equal(t, newer.ID, runs[0].ID)
	require.Equal(t, older.ID, runs[1].ID)
	require.Equal(t, "Chicago (Midway)", runs[0].Series)
	require.Equal(t, 46, runs[0].Succeeded)
	require.Equal(t, 2, runs[0].Failed)
	require.Equal(t, int64(128_000), runs[0].Bytes)
}

func TestListRunsLimit(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, time.August, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordRun(ctx, sampleRun("Series", base.Add(time.Duration(i)*time.Minute))))
	}

	runs, err := s.ListRuns(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Non-positive limits fall back to the default.
	runs, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 5)
}

func TestRecordAndListFetches(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	runID := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.RecordFetch(ctx, FetchRecord{
		RunID: runID, Version: 3, OK: true, Bytes: 2048,
		Duration: 150 * time.Millisecond, RecordedAt: now,
	}))
	require.NoError(t, s.RecordFetch(ctx, FetchRecord{
		RunID: runID, Version: 1, OK: false,
		Error: "network error", RecordedAt: now,
	}))

	recs, err := s.ListFetches(ctx, runID)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	require.Equal(t, 1, recs[0].Version)
	require.False(t, recs[0].OK)
	require.Equal(t, "network error", recs[0].Error)

	require.Equal(t, 3, recs[1].Version)
	require.True(t, recs[1].OK)
	require.Equal(t, int64(2048), recs[1].Bytes)
	require.Equal(t, 150*time.Millisecond, recs[1].Duration)
}

func TestRecordFetchReplacesDuplicateVersion(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	runID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, s.RecordFetch(ctx, FetchRecord{
		RunID: runID, Version: 1, OK: false, Error: "network error", RecordedAt: now,
	}))
	require.NoError(t, s.RecordFetch(ctx, FetchRecord{
		RunID: runID, Version: 1, OK: true, Bytes: 512, RecordedAt: now,
	}))

	recs, err := s.ListFetches(ctx, runID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.True(t, recs[0].OK)
	require.Equal(t, int64(512), recs[0].Bytes)
}

func TestListFetchesScopedToRun(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	now := time.Now().UTC()

	require.NoError(t, s.RecordFetch(ctx, FetchRecord{RunID: a, Version: 1, OK: true, RecordedAt: now}))
	require.NoError(t, s.RecordFetch(ctx, FetchRecord{RunID: b, Version: 1, OK: true, RecordedAt: now}))

	recs, err := s.ListFetches(ctx, a)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, a, recs[0].RunID)
}

func TestRecorderArchivesFetchEvents(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	r := NewRecorder(s)
	runID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, r.Consume(progress.Event{
		RunID: runID, TS: now, Stage: progress.StageFetchDone,
		Series: "Test", Version: 2, Bytes: 100, Dur: 20 * time.Millisecond,
	}))
	require.NoError(t, r.Consume(progress.Event{
		RunID: runID, TS: now, Stage: progress.StageFetchFail,
		Series: "Test", Version: 5, FailKind: progress.FailNetwork, Note: "gave up after 3 attempts",
	}))
	// Lifecycle events are not archived.
	require.NoError(t, r.Consume(progress.Event{
		RunID: runID, TS: now, Stage: progress.StageHarvestStart, Series: "Test",
	}))

	recs, err := s.ListFetches(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	require.Equal(t, 2, recs[0].Version)
	require.True(t, recs[0].OK)

	require.Equal(t, 5, recs[1].Version)
	require.False(t, recs[1].OK)
	require.Equal(t, "gave up after 3 attempts", recs[1].Error)
}
