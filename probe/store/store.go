// Package store persists sweep trials.
//
// Backends range from in-memory (testing) through JSON result files
// (interchangeable with the study's original result directories) to
// SQLite and MySQL for querying across many runs. All backends satisfy
// probe.TrialSink, so any of them can be wired into an Engine with
// probe.WithTrialSink.
package store

import (
	"context"
	"errors"

	"github.com/dshills/visionprobe/probe"
)

// ErrNotFound is returned when a query matches no stored trials.
var ErrNotFound = errors.New("not found")

// Store provides persistence for sweep trials.
//
// Implementations:
//   - MemStore: in-memory, for tests and throwaway runs
//   - JSONStore: one {model}_{prompt}_results.json file per pair
//   - SQLiteStore: single-file database, zero setup
//   - MySQLStore: shared database for multi-host sweeps
type Store interface {
	// SaveTrial persists one completed trial.
	//
	// The engine serializes SaveTrial calls, so implementations need
	// locking only if they are also read concurrently.
	//
	// Saving a trial with the same (run, model, prompt, filename,
	// foldername, object) identity replaces the earlier record. Re-running
	// a sweep under the same run ID therefore overwrites rather than
	// duplicates.
	SaveTrial(ctx context.Context, runID string, t probe.Trial) error

	// ListTrials retrieves trials matching the query. All query fields
	// are optional; zero values match everything.
	//
	// Returns ErrNotFound when nothing matches.
	ListTrials(ctx context.Context, q Query) ([]probe.Trial, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources. After Close, all operations
	// return an error. Double-close is a no-op.
	Close() error
}

// Query filters ListTrials results. Empty fields match everything.
type Query struct {
	RunID  string
	Model  string
	Prompt string
	Folder string
	Object string
}

// matches reports whether a trial satisfies the non-empty query fields.
// The run ID is checked by each backend, which knows where it stored it.
func (q Query) matches(t probe.Trial) bool {
	if q.Model != "" && t.Model != q.Model {
		return false
	}
	if q.Prompt != "" && t.Prompt != q.Prompt {
		return false
	}
	if q.Folder != "" && t.Folder != q.Folder {
		return false
	}
	if q.Object != "" && t.Object != q.Object {
		return false
	}
	return true
}
