// Package runstore records simulation runs and the per-date completion state
// of the daily forecasts in a SQLite database.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"fopsim/internal/simulation"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Run is one invocation of the driver over a range of days.
type Run struct {
	ID        string         `json:"id"`
	Variant   string         `json:"variant"`
	Status    Status         `json:"status"`
	Params    map[string]any `json:"params,omitempty"`
	Seed      int64          `json:"seed"`
	Year      int            `json:"year"`
	StartDay  int            `json:"start_day"`
	EndDay    int            `json:"end_day"`
	Emitted   int            `json:"emitted"`
	Failed    int            `json:"failed"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// RunSpec describes a run about to start.
type RunSpec struct {
	Variant  simulation.Variant
	Seed     int64
	Year     int
	StartDay int
	EndDay   int
	Params   map[string]any
}

// Store is the SQLite-backed run tracker.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// Open opens the database at dsn in WAL mode and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("runstore: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("runstore: exec %s: %w", pragma, err)
		}
	}
	s := &Store{db: db, clock: clockwork.NewRealClock()}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock swaps the time source. Pass nil to reset to real time.
func (s *Store) SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	s.clock = c
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	variant    TEXT NOT NULL,
	status     TEXT NOT NULL,
	params     TEXT,
	seed       INTEGER NOT NULL,
	year       INTEGER NOT NULL,
	start_day  INTEGER NOT NULL,
	end_day    INTEGER NOT NULL,
	emitted    INTEGER NOT NULL DEFAULT 0,
	failed     INTEGER NOT NULL DEFAULT 0,
	error      TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS day_state (
	date                   TEXT PRIMARY KEY,
	lightning_completed    INTEGER NOT NULL DEFAULT 0,
	human_completed        INTEGER NOT NULL DEFAULT 0,
	forecasted_or_observed TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("runstore: migrate: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a running run.
func (s *Store) CreateRun(ctx context.Context, spec RunSpec) (*Run, error) {
	now := s.clock.Now().UTC()
	run := &Run{
		ID:        uuid.New().String(),
		Variant:   string(spec.Variant),
		Status:    StatusRunning,
		Params:    spec.Params,
		Seed:      spec.Seed,
		Year:      spec.Year,
		StartDay:  spec.StartDay,
		EndDay:    spec.EndDay,
		CreatedAt: now,
		UpdatedAt: now,
	}

	params, err := json.Marshal(spec.Params)
	if err != nil {
		return nil, fmt.Errorf("runstore: marshal params: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, variant, status, params, seed, year, start_day, end_day, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Variant, string(run.Status), string(params), run.Seed,
		run.Year, run.StartDay, run.EndDay, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("runstore: insert run: %w", err)
	}
	return run, nil
}

// FinishRun marks a run complete with its summary counts.
func (s *Store) FinishRun(ctx context.Context, id string, sum simulation.Summary) error {
	return s.finish(ctx, id, StatusComplete, sum, summaryError(sum))
}

// FailRun marks a run failed, or canceled when cause is a context error.
func (s *Store) FailRun(ctx context.Context, id string, sum simulation.Summary, cause error) error {
	status := StatusFailed
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		status = StatusCanceled
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.finish(ctx, id, status, sum, msg)
}

func (s *Store) finish(ctx context.Context, id string, status Status, sum simulation.Summary, msg string) error {
	var errText sql.NullString
	if msg != "" {
		errText = sql.NullString{String: msg, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, emitted = ?, failed = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), sum.Emitted, len(sum.Failed), errText, s.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("runstore: update run %s: %w", id, err)
	}
	return checkRowsAffected(res, id)
}

func summaryError(sum simulation.Summary) string {
	if err := sum.FailedErr(); err != nil {
		return err.Error()
	}
	return ""
}

const runColumns = `id, variant, status, params, seed, year, start_day, end_day, emitted, failed, error, created_at, updated_at`

// GetRun returns one run or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("runstore: list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runstore: list runs iterate: %w", err)
	}
	return runs, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var (
		r       Run
		status  string
		params  sql.NullString
		errText sql.NullString
	)
	err := row.Scan(&r.ID, &r.Variant, &status, &params, &r.Seed, &r.Year, &r.StartDay, &r.EndDay,
		&r.Emitted, &r.Failed, &errText, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: scan run: %w", err)
	}
	r.Status = Status(status)
	r.Error = errText.String
	if params.Valid && params.String != "" && params.String != "null" {
		if err := json.Unmarshal([]byte(params.String), &r.Params); err != nil {
			return nil, fmt.Errorf("runstore: unmarshal params: %w", err)
		}
	}
	return &r, nil
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("runstore: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
