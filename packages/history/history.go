// Package history keeps a SQLite log of suite runs so results can be
// compared over time.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/core/runner"
	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS suite_results (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	suite       TEXT NOT NULL,
	file        TEXT NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	p50_us      INTEGER NOT NULL,
	p95_us      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS step_results (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	suite       TEXT NOT NULL,
	step_index  INTEGER NOT NULL,
	name        TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	status      INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	error       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS step_results_name ON step_results (suite, name);
`

// Run is one recorded invocation.
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Passed    int
	Failed    int
	Skipped   int
}

// Step is one recorded step outcome.
type Step struct {
	RunID    string
	Suite    string
	Index    int
	Name     string
	Outcome  runner.Outcome
	Status   int
	Duration time.Duration
	Error    string
}

// Store is a SQLite-backed run log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the run log. conn is a file path or a
// sqlite:// / sqlite: connection string; missing parent directories of the
// database file are created.
func Open(conn string) (*Store, error) {
	dsn, err := parseConnectionString(conn)
	if err != nil {
		return nil, err
	}
	if path, _, _ := strings.Cut(dsn, "?"); path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to history: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate history: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save writes a run and its suites in one transaction and returns the run.
func (s *Store) Save(ctx context.Context, startedAt time.Time, total time.Duration, results []*runner.SuiteResult) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: startedAt.UTC(),
		Duration:  total,
	}
	for _, r := range results {
		run.Passed += r.Passed
		run.Failed += r.Failed
		run.Skipped += r.Skipped
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, passed, failed, skipped) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, total.Milliseconds(), run.Passed, run.Failed, run.Skipped,
	); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	for _, r := range results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO suite_results (run_id, suite, file, passed, failed, skipped, duration_ms, p50_us, p95_us)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, r.Name, r.File, r.Passed, r.Failed, r.Skipped,
			r.Duration.Milliseconds(), r.Latency.P50.Microseconds(), r.Latency.P95.Microseconds(),
		); err != nil {
			return nil, fmt.Errorf("failed to record suite %s: %w", r.Name, err)
		}

		for _, step := range r.Results {
			status := 0
			if step.Response != nil {
				status = step.Response.StatusCode
			}
			errText := ""
			if step.Error != nil {
				errText = step.Error.Error()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO step_results (run_id, suite, step_index, name, outcome, status, duration_ms, error)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, r.Name, step.Index, step.Name, string(step.Outcome()), status, step.Duration.Milliseconds(), errText,
			); err != nil {
				return nil, fmt.Errorf("failed to record step %s: %w", step.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit history: %w", err)
	}
	return run, nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, passed, failed, skipped FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			durationMs int64
		)
		if err := rows.Scan(&run.ID, &run.StartedAt, &durationMs, &run.Passed, &run.Failed, &run.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Steps returns the steps of a run in suite and step order. runID may be a
// unique prefix.
func (s *Store) Steps(ctx context.Context, runID string) ([]Step, error) {
	id, err := s.resolveID(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.querySteps(ctx,
		`SELECT run_id, suite, step_index, name, outcome, status, duration_ms, error
		 FROM step_results WHERE run_id = ? ORDER BY rowid`, id)
}

// Trend returns the latest outcomes of one step across runs, newest first.
func (s *Store) Trend(ctx context.Context, suite, step string, limit int) ([]Step, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.querySteps(ctx,
		`SELECT sr.run_id, sr.suite, sr.step_index, sr.name, sr.outcome, sr.status, sr.duration_ms, sr.error
		 FROM step_results sr JOIN runs r ON r.id = sr.run_id
		 WHERE sr.suite = ? AND sr.name = ?
		 ORDER BY r.started_at DESC, r.rowid DESC LIMIT ?`, suite, step, limit)
}

func (s *Store) querySteps(ctx context.Context, query string, args ...any) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var (
			step       Step
			outcome    string
			durationMs int64
		)
		if err := rows.Scan(&step.RunID, &step.Suite, &step.Index, &step.Name, &outcome, &step.Status, &durationMs, &step.Error); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		step.Outcome = runner.Outcome(outcome)
		step.Duration = time.Duration(durationMs) * time.Millisecond
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func (s *Store) resolveID(ctx context.Context, prefix string) (string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE id LIKE ? LIMIT 2`, prefix+"%")
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("no run matches %q", prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run id %q is ambiguous", prefix)
	}
}

// Recorder is a runner.Reporter that saves the run on Flush.
type Recorder struct {
	store   *Store
	started time.Time
	results []*runner.SuiteResult
	last    *Run
}

func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) SuiteStarted(*parser.Suite) {
	if r.started.IsZero() {
		r.started = time.Now()
	}
}

func (r *Recorder) StepFinished(*runner.StepResult) {}

func (r *Recorder) SuiteFinished(result *runner.SuiteResult) {
	r.results = append(r.results, result)
}

func (r *Recorder) Flush(totalDuration time.Duration) error {
	if len(r.results) == 0 {
		return nil
	}
	started := r.started
	if started.IsZero() {
		started = time.Now()
	}
	run, err := r.store.Save(context.Background(), started, totalDuration, r.results)
	if err != nil {
		return err
	}
	r.last = run
	return nil
}

// Last returns the run saved by the latest Flush, or nil.
func (r *Recorder) Last() *Run {
	return r.last
}

// parseConnectionString accepts sqlite://path, sqlite:path or a bare path.
func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)
	switch {
	case connStr == "":
		return "", fmt.Errorf("empty history path")
	case strings.HasPrefix(connStr, "sqlite://"):
		return strings.TrimPrefix(connStr, "sqlite://"), nil
	case strings.HasPrefix(connStr, "sqlite:"):
		return strings.TrimPrefix(connStr, "sqlite:"), nil
	case strings.Contains(connStr, "://"):
		return "", fmt.Errorf("unsupported history database: %s", connStr)
	default:
		return connStr, nil
	}
}
