// Package archive persists harvest runs and per-version fetch records in an
// embedded SQLite database, so repeated harvests of the same series can be
// compared after the fact.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite connection.
type Store struct {
	db *sql.DB
}

// Run is one archived harvest run.
type Run struct {
	ID         uuid.UUID
	Series     string
	MaxVersion int
	Succeeded  int
	Failed     int
	Bytes      int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// FetchRecord is one archived version fetch.
type FetchRecord struct {
	RunID      uuid.UUID
	Version    int
	OK         bool
	Bytes      int64
	Duration   time.Duration
	Error      string
	RecordedAt time.Time
}

// Open opens (and migrates) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS harvests (
			id TEXT PRIMARY KEY,
			series TEXT NOT NULL,
			max_version INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			bytes INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fetches (
			harvest_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			bytes INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			recorded_at TIMESTAMP NOT NULL,
			PRIMARY KEY (harvest_id, version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_harvests_series ON harvests(series, started_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun inserts one finished harvest run.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	const q = `
		INSERT INTO harvests (id, series, max_version, succeeded, failed, bytes, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, q,
		run.ID.String(), run.Series, run.MaxVersion,
		run.Succeeded, run.Failed, run.Bytes,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecordFetch inserts one settled fetch.
func (s *Store) RecordFetch(ctx context.Context, rec FetchRecord) error {
	const q = `
		INSERT OR REPLACE INTO fetches (harvest_id, version, ok, bytes, duration_ms, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, q,
		rec.RunID.String(), rec.Version, rec.OK,
		rec.Bytes, rec.Duration.Milliseconds(), rec.Error,
		rec.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record fetch: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
		SELECT id, series, max_version, succeeded, failed, bytes, started_at, finished_at
		FROM harvests
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run Run
			id  string
		)
		if err := rows.Scan(&id, &run.Series, &run.MaxVersion, &run.Succeeded, &run.Failed, &run.Bytes, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse run id: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ListFetches returns the archived fetches of one run, by version.
func (s *Store) ListFetches(ctx context.Context, runID uuid.UUID) ([]FetchRecord, error) {
	const q = `
		SELECT harvest_id, version, ok, bytes, duration_ms, error, recorded_at
		FROM fetches
		WHERE harvest_id = ?
		ORDER BY version ASC
	`
	rows, err := s.db.QueryContext(ctx, q, runID.String())
	if err != nil {
		return nil, fmt.Errorf("list fetches: %w", err)
	}
	defer rows.Close()

	var recs []FetchRecord
	for rows.Next() {
		var (
			rec        FetchRecord
			id         string
			durationMS int64
		)
		if err := rows.Scan(&id, &rec.Version, &rec.OK, &rec.Bytes, &durationMS, &rec.Error, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan fetch: %w", err)
		}
		rec.RunID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse fetch run id: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fetches: %w", err)
	}
	return recs, nil
}
