package archive

import (
	"context"
	"time"

	"github.com/msmolkin/nwsharvest/internal/progress"
)

// Recorder adapts the Store to the progress sink interface so every settled
// fetch lands in the archive as it happens.
type Recorder struct {
	store   *Store
	timeout time.Duration
}

// NewRecorder builds a Recorder over an open Store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store, timeout: 5 * time.Second}
}

// Consume archives fetch events; run-level rows are written by the caller
// once the run result is final.
func (r *Recorder) Consume(evt progress.Event) error {
	if evt.Stage != progress.StageFetchDone && evt.Stage != progress.StageFetchFail {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.store.RecordFetch(ctx, FetchRecord{
		RunID:      evt.RunID,
		Version:    evt.Version,
		OK:         evt.Stage == progress.StageFetchDone,
		Bytes:      evt.Bytes,
		Duration:   evt.Dur,
		Error:      evt.Note,
		RecordedAt: evt.TS,
	})
}
