package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sglxpipe/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Status is the lifecycle state of a stage execution.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Entry identifies a stage execution.
type Entry struct {
	PipelineID string
	Run        string
	Session    string
	Stage      string
	Digest     string
	Command    string
}

// StageRun is one persisted stage execution.
type StageRun struct {
	ID         int64
	PipelineID string
	Run        string
	Session    string
	Stage      string
	Digest     string
	Status     Status
	Command    string
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Duration reports how long the stage ran, zero while running.
func (r StageRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Ledger persists stage executions.
type Ledger struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the ledger database under the state directory.
func Open(cfg *config.Config) (*Ledger, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.LedgerPath())
}

// OpenPath opens the ledger database at path.
func OpenPath(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	l := &Ledger{db: db, path: path, now: time.Now}
	if err := l.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// Path returns the database file location.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Begin records a stage as running and returns its row ID.
func (l *Ledger) Begin(ctx context.Context, entry Entry) (int64, error) {
	res, err := l.execWithRetry(ctx,
		`INSERT INTO stage_runs (pipeline_id, run_name, session, stage, config_digest, status, command, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.PipelineID, entry.Run, entry.Session, entry.Stage, entry.Digest,
		string(StatusRunning), nullableString(entry.Command), formatTime(l.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert stage run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("stage run id: %w", err)
	}
	return id, nil
}

// Finish closes a running stage with a terminal status.
func (l *Ledger) Finish(ctx context.Context, id int64, status Status, stageErr error) error {
	switch status {
	case StatusSucceeded, StatusFailed, StatusSkipped:
	default:
		return fmt.Errorf("finish stage run %d: invalid terminal status %q", id, status)
	}
	message := ""
	if stageErr != nil {
		message = strings.TrimSpace(stageErr.Error())
	}
	res, err := l.execWithRetry(ctx,
		`UPDATE stage_runs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(status), nullableString(message), formatTime(l.now()), id,
	)
	if err != nil {
		return fmt.Errorf("update stage run %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update stage run %d: no such row", id)
	}
	return nil
}

// Skip records a stage that was not executed because it already succeeded.
func (l *Ledger) Skip(ctx context.Context, entry Entry) error {
	id, err := l.Begin(ctx, entry)
	if err != nil {
		return err
	}
	return l.Finish(ctx, id, StatusSkipped, nil)
}

// Succeeded reports whether the stage of session already succeeded with the same record digest.
func (l *Ledger) Succeeded(ctx context.Context, session, stage, digest string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	err := retryOnBusy(ctx, func() error {
		return l.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM stage_runs
			 WHERE session = ? AND stage = ? AND config_digest = ? AND status = ?`,
			session, stage, digest, string(StatusSucceeded),
		).Scan(&count)
	})
	if err != nil {
		return false, fmt.Errorf("query stage history: %w", err)
	}
	return count > 0, nil
}

// Recent returns the newest stage executions, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]StageRun, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, pipeline_id, run_name, session, stage, config_digest, status,
		        command, error_message, started_at, finished_at
		 FROM stage_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent stage runs: %w", err)
	}
	defer rows.Close()

	var runs []StageRun
	for rows.Next() {
		run, err := scanStageRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage runs: %w", err)
	}
	return runs, nil
}

func scanStageRun(scanner interface{ Scan(dest ...any) error }) (StageRun, error) {
	var (
		run        StageRun
		status     string
		command    sql.NullString
		errMessage sql.NullString
		startedAt  string
		finishedAt sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.PipelineID, &run.Run, &run.Session, &run.Stage, &run.Digest,
		&status, &command, &errMessage, &startedAt, &finishedAt); err != nil {
		return StageRun{}, fmt.Errorf("scan stage run: %w", err)
	}
	run.Status = Status(status)
	run.Command = command.String
	run.Error = errMessage.String
	started, err := parseTime(startedAt)
	if err != nil {
		return StageRun{}, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = started
	if finishedAt.Valid && finishedAt.String != "" {
		finished, err := parseTime(finishedAt.String)
		if err != nil {
			return StageRun{}, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &finished
	}
	return run, nil
}
