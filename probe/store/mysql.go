package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/visionprobe/probe"
	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store.
//
// Designed for:
//   - Sweeps split across multiple hosts writing to one database
//   - Long-lived result archives queried by model, prompt, or folder
//
// MySQLStore uses connection pooling and parameterized statements.
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore creates a new MySQL-backed store.
//
// The DSN (Data Source Name) format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
//
// Example DSNs:
//
//	user:password@tcp(localhost:3306)/sweeps
//	user:password@tcp(127.0.0.1:3306)/sweeps?parseTime=true
//
// Security Warning:
//
//	NEVER hardcode credentials in your source code. Use environment variables:
//	    dsn := os.Getenv("MYSQL_DSN")
//	    if dsn == "" {
//	        log.Fatal("MYSQL_DSN environment variable not set")
//	    }
//	    st, err := store.NewMySQLStore(dsn)
//
// The store automatically creates the trials table and configures
// connection pooling.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	st := &MySQLStore{db: db}

	if err := st.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return st, nil
}

func (m *MySQLStore) createTables(ctx context.Context) error {
	trialsTable := `
		CREATE TABLE IF NOT EXISTS trials (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL,
			model VARCHAR(255) NOT NULL,
			prompt VARCHAR(64) NOT NULL,
			filename VARCHAR(255) NOT NULL,
			foldername VARCHAR(255) NOT NULL,
			object VARCHAR(255) NOT NULL,
			flag INT NOT NULL,
			raw_answer TEXT NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT '',
			error TEXT,
			latency_ms BIGINT NOT NULL DEFAULT 0,
			total_tokens INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_run_id (run_id),
			INDEX idx_model_prompt (model, prompt),
			UNIQUE KEY unique_trial (run_id, model, prompt, filename, foldername, object)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, trialsTable); err != nil {
		return fmt.Errorf("failed to create trials table: %w", err)
	}

	return nil
}

// SaveTrial persists one trial (implements Store and probe.TrialSink).
//
// A trial with the same (run, model, prompt, filename, foldername,
// object) identity replaces the existing row.
func (m *MySQLStore) SaveTrial(ctx context.Context, runID string, t probe.Trial) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	query := `
		INSERT INTO trials
		(run_id, model, prompt, filename, foldername, object, flag, raw_answer, status, error, latency_ms, total_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			flag = VALUES(flag),
			raw_answer = VALUES(raw_answer),
			status = VALUES(status),
			error = VALUES(error),
			latency_ms = VALUES(latency_ms),
			total_tokens = VALUES(total_tokens)
	`

	_, err := m.db.ExecContext(ctx, query,
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
func (m *MySQLStore) ListTrials(ctx context.Context, q Query) ([]probe.Trial, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	query, args := buildListQuery(q)

	rows, err := m.db.QueryContext(ctx, query, args...)
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

// Ping verifies the database connection is alive.
func (m *MySQLStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	return m.db.PingContext(ctx)
}

// Close closes the database connection. Double-close is a no-op.
func (m *MySQLStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	return m.db.Close()
}
