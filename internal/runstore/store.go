// Package runstore keeps a SQLite history of clustering runs.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run summarises one clustering run.
type Run struct {
	RunID        string
	CreatedAt    time.Time
	Input        string
	OutputPrefix string

	Metric  string
	Init    string
	Method  string
	K       int
	MaxIter int
	Seed    uint64

	Points        int
	Cost          float64
	Iterations    int
	CapReached    bool
	FitSeconds    float64
	MatrixSeconds float64
	Anomalies     int

	// ConfigJSON is the effective configuration file content, if any.
	ConfigJSON json.RawMessage
}

// Store persists runs.
type Store struct {
	db *sql.DB
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	s := &Store{db: db}
	if err := s.MigrateUp(Migrations()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert persists run. If RunID is empty, a UUID is generated; a zero
// CreatedAt is set to now.
func (s *Store) Insert(ctx context.Context, run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	var configStr interface{}
	if len(run.ConfigJSON) > 0 {
		configStr = string(run.ConfigJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO clustering_runs (
				run_id, created_at, input_path, output_prefix,
				distance_metric, init, method, k_clusters, max_iter, random_seed,
				point_count, cost, iterations, cap_reached,
				fit_seconds, matrix_seconds, anomaly_count, config_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.CreatedAt.UnixNano(), run.Input, run.OutputPrefix,
			run.Metric, run.Init, run.Method, run.K, run.MaxIter, int64(run.Seed),
			run.Points, run.Cost, run.Iterations, run.CapReached,
			run.FitSeconds, run.MatrixSeconds, run.Anomalies, configStr,
		)
		return err
	})
}

const selectRun = `
	SELECT run_id, created_at, input_path, output_prefix,
		distance_metric, init, method, k_clusters, max_iter, random_seed,
		point_count, cost, iterations, cap_reached,
		fit_seconds, matrix_seconds, anomaly_count, config_json
	FROM clustering_runs`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r         Run
		created   int64
		seed      int64
		configStr sql.NullString
	)
	err := sc.Scan(
		&r.RunID, &created, &r.Input, &r.OutputPrefix,
		&r.Metric, &r.Init, &r.Method, &r.K, &r.MaxIter, &seed,
		&r.Points, &r.Cost, &r.Iterations, &r.CapReached,
		&r.FitSeconds, &r.MatrixSeconds, &r.Anomalies, &configStr,
	)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, created)
	r.Seed = uint64(seed)
	if configStr.Valid {
		r.ConfigJSON = json.RawMessage(configStr.String)
	}
	return &r, nil
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRun+` WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// List returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	q := selectRun + ` ORDER BY created_at DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// isSQLiteBusy reports whether err is a transient lock error.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

const maxBusyRetries = 5

// retryOnBusy runs fn, retrying with exponential backoff while SQLite
// reports the database as locked.
func retryOnBusy(fn func() error) error {
	delay := 10 * time.Millisecond
	var err error
	for attempt := 1; attempt <= maxBusyRetries; attempt++ {
		err = fn()
		if !isSQLiteBusy(err) {
			return err
		}
		if attempt < maxBusyRetries {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("database busy after %d attempts: %w", maxBusyRetries, err)
}
