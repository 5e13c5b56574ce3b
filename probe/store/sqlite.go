package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dshills/visionprobe/probe"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store.
//
// It stores trials in a single-file database. Designed for:
//   - Development and local sweeps with zero setup
//   - Querying trials across many runs without loading result files
//
// SQLiteStore uses WAL mode so readers (scoring, ad hoc queries) don't
// block the sweep writing trials.
//
// Schema:
//   - trials: one row per dispatched case, unique per
//     (run_id, model, prompt, filename, foldername, object)
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore creates a new SQLite-backed store.
//
// The path parameter specifies the database file location:
//   - "./sweeps.db" - file in current directory
//   - ":memory:" - in-memory database (data lost on close)
//
// The store automatically:
//   - Creates the database file if it doesn't exist
//   - Creates the trials table
//   - Enables WAL mode for concurrent reads
//
// Example:
//
//	st, err := store.NewSQLiteStore("./sweeps.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	st := &SQLiteStore{
		db:   db,
		path: path,
	}

	if err := st.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return st, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	trialsTable := `
		CREATE TABLE IF NOT EXISTS trials (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			model TEXT NOT NULL,
			prompt TEXT NOT NULL,
			filename TEXT NOT NULL,
			foldername TEXT NOT NULL,
			object TEXT NOT NULL,
			flag INTEGER NOT NULL,
			raw_answer TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			latency_ms INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(run_id, model, prompt, filename, foldername, object)
		)
	`
	if _, err := s.db.ExecContext(ctx, trialsTable); err != nil {
		return fmt.Errorf("failed to create trials table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_trials_run_id ON trials(run_id)"); err != nil {
		return fmt.Errorf("failed to create idx_trials_run_id: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_trials_model_prompt ON trials(model, prompt)"); err != nil {
		return fmt.Errorf("failed to create idx_trials_model_prompt: %w", err)
	}

	return nil
}

// SaveTrial persists one trial (implements Store and probe.TrialSink).
//
// A trial with the same (run, model, prompt, filename, foldername,
// object) identity replaces the existing row. Foldername is part of the
// identity: different dataset folders can hold images with the same
// filename, and those are distinct cases.
func (s *SQLiteStore) SaveTrial(ctx context.Context, runID string, t probe.Trial) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	query := `
		INSERT INTO trials
		(run_id, model, prompt, filename, foldername, object, flag, raw_answer, status, error, latency_ms, total_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, model, prompt, filename, foldername, object) DO UPDATE SET
			flag = excluded.flag,
			raw_answer = excluded.raw_answer,
			status = excluded.status,
			error = excluded.error,
			latency_ms = excluded.latency_ms,
			total_tokens = excluded.total_tokens
	`

	_, err := s.db.ExecContext(ctx, query,
		runID, t.Model, t.Prompt, t.Filename, t.Folder, t.Object,
		t.Flag, t.RawAnswer, t.Status, t.Err, t.LatencyMS, t.TotalTokens,
	)
	if err != nil {
		return fmt.Errorf("failed to save trial: %w", err)
	}

	return nil
}

// ListTrials retrieves trials matching the query, ordered by insertion.
//
// Returns ErrNotFound when nothing matches.
func (s *SQLiteStore) ListTrials(ctx context.Context, q Query) ([]probe.Trial, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	query, args := buildListQuery(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	trials, err := scanTrials(rows)
	if err != nil {
		return nil, err
	}
	if len(trials) == 0 {
		return nil, ErrNotFound
	}
	return trials, nil
}

// buildListQuery assembles the filtered SELECT shared by the SQL stores.
// Both SQLite and MySQL accept "?" placeholders.
func buildListQuery(q Query) (string, []interface{}) {
	query := `
		SELECT model, prompt, filename, foldername, object, flag, raw_answer, status, error, latency_ms, total_tokens
		FROM trials
		WHERE 1=1
	`
	var args []interface{}

	if q.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, q.RunID)
	}
	if q.Model != "" {
		query += " AND model = ?"
		args = append(args, q.Model)
	}
	if q.Prompt != "" {
		query += " AND prompt = ?"
		args = append(args, q.Prompt)
	}
	if q.Folder != "" {
		query += " AND foldername = ?"
		args = append(args, q.Folder)
	}
	if q.Object != "" {
		query += " AND object = ?"
		args = append(args, q.Object)
	}

	query += " ORDER BY id ASC"
	return query, args
}

// scanTrials reads trial rows produced by buildListQuery.
func scanTrials(rows *sql.Rows) ([]probe.Trial, error) {
	var trials []probe.Trial
	for rows.Next() {
		var t probe.Trial
		if err := rows.Scan(
			&t.Model, &t.Prompt, &t.Filename, &t.Folder, &t.Object,
			&t.Flag, &t.RawAnswer, &t.Status, &t.Err, &t.LatencyMS, &t.TotalTokens,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trial row: %w", err)
		}
		trials = append(trials, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trial rows: %w", err)
	}
	return trials, nil
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	return s.db.PingContext(ctx)
}

// Close closes the database connection. Double-close is a no-op.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}
