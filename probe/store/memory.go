package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/visionprobe/probe"
)

// MemStore is an in-memory implementation of Store.
//
// Designed for:
//   - Testing and development
//   - Short sweeps where persistence isn't required
//
// MemStore is thread-safe and supports concurrent access.
//
// Limitations:
//   - Data is lost when the process terminates
//   - Memory usage grows with trial count
type MemStore struct {
	mu     sync.RWMutex
	trials map[string][]probe.Trial // runID -> trials in save order
	index  map[string]int           // identity key -> slice index within run
	closed bool
}

// NewMemStore creates a new in-memory store.
//
// Example:
//
//	st := store.NewMemStore()
//	engine := probe.NewEngine(model, "gpt-4o", probe.WithTrialSink(st))
func NewMemStore() *MemStore {
	return &MemStore{
		trials: make(map[string][]probe.Trial),
		index:  make(map[string]int),
	}
}

// trialKey is the upsert identity. Foldername is included because the
// same filename and object can occur in more than one dataset folder.
func trialKey(runID string, t probe.Trial) string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%s\x00%s", runID, t.Model, t.Prompt, t.Filename, t.Folder, t.Object)
}

// SaveTrial stores one trial, replacing any earlier record with the same
// identity within the run.
func (m *MemStore) SaveTrial(_ context.Context, runID string, t probe.Trial) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}

	key := trialKey(runID, t)
	if i, exists := m.index[key]; exists {
		m.trials[runID][i] = t
		return nil
	}

	m.index[key] = len(m.trials[runID])
	m.trials[runID] = append(m.trials[runID], t)
	return nil
}

// ListTrials retrieves trials matching the query.
//
// An empty RunID searches across all runs. Returns ErrNotFound when no
// trial matches.
func (m *MemStore) ListTrials(_ context.Context, q Query) ([]probe.Trial, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var runs [][]probe.Trial
	if q.RunID != "" {
		runs = append(runs, m.trials[q.RunID])
	} else {
		for _, trials := range m.trials {
			runs = append(runs, trials)
		}
	}

	var matched []probe.Trial
	for _, trials := range runs {
		for _, t := range trials {
			if q.matches(t) {
				matched = append(matched, t)
			}
		}
	}

	if len(matched) == 0 {
		return nil, ErrNotFound
	}
	return matched, nil
}

// Ping always succeeds while the store is open.
func (m *MemStore) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// Close releases the store. Double-close is a no-op.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
