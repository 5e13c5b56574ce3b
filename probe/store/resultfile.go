package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dshills/visionprobe/probe"
)

// JSONStore persists trials as result files in a directory, one file per
// (model, prompt) pair named "{model}_{prompt}_results.json" holding a
// JSON array of trials.
//
// The layout and field names match the study's original result
// directories, so files written by either implementation load
// interchangeably. Because the file format carries no run identity,
// Query.RunID is ignored by ListTrials.
//
// Each SaveTrial rewrites the affected file in full through a temp file
// and rename, so a crash mid-sweep leaves every result file valid JSON.
type JSONStore struct {
	dir    string
	mu     sync.Mutex
	cache  map[string][]probe.Trial // "model_prompt" -> trials in save order
	index  map[string]int           // identity key -> slice index
	closed bool
}

// NewJSONStore creates a result-file store rooted at dir.
//
// The directory is created if it doesn't exist. Existing result files in
// the directory are preserved and extended; re-saving a trial with the
// same (model, prompt, filename, foldername, object) identity replaces
// the earlier record.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	s := &JSONStore{
		dir:   dir,
		cache: make(map[string][]probe.Trial),
		index: make(map[string]int),
	}

	if err := s.loadExisting(); err != nil {
		return nil, err
	}

	return s, nil
}

// Dir returns the results directory path.
func (s *JSONStore) Dir() string {
	return s.dir
}

func resultFileName(model, prompt string) string {
	return fmt.Sprintf("%s_%s_results.json", model, prompt)
}

// resultIdentity keys upserts within a result file. Foldername is
// included because the same filename and object can occur in more than
// one dataset folder.
func resultIdentity(t probe.Trial) string {
	return t.Model + "\x00" + t.Prompt + "\x00" + t.Filename + "\x00" + t.Folder + "\x00" + t.Object
}

func (s *JSONStore) loadExisting() error {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*_results.json"))
	if err != nil {
		return fmt.Errorf("failed to glob result files: %w", err)
	}

	for _, path := range paths {
		trials, err := ReadResultFile(path)
		if err != nil {
			return err
		}
		for _, t := range trials {
			key := resultFileName(t.Model, t.Prompt)
			id := resultIdentity(t)
			s.index[id] = len(s.cache[key])
			s.cache[key] = append(s.cache[key], t)
		}
	}

	return nil
}

// SaveTrial records the trial and rewrites its result file (implements
// Store and probe.TrialSink). The run ID is not recorded; the file
// format has no field for it.
func (s *JSONStore) SaveTrial(_ context.Context, _ string, t probe.Trial) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	key := resultFileName(t.Model, t.Prompt)
	id := resultIdentity(t)
	if i, exists := s.index[id]; exists {
		s.cache[key][i] = t
	} else {
		s.index[id] = len(s.cache[key])
		s.cache[key] = append(s.cache[key], t)
	}

	return s.writeFile(key)
}

// writeFile atomically rewrites one result file from the cache.
// Caller holds s.mu. Four-space indentation matches the files the
// study's original scripts produce.
func (s *JSONStore) writeFile(name string) error {
	data, err := json.MarshalIndent(s.cache[name], "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal trials: %w", err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace result file: %w", err)
	}

	return nil
}

// ListTrials retrieves trials matching the query. Query.RunID is
// ignored; result files carry no run identity.
//
// Returns ErrNotFound when nothing matches.
func (s *JSONStore) ListTrials(_ context.Context, q Query) ([]probe.Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	// File names sort the output so repeated queries are stable.
	var names []string
	for name := range s.cache {
		names = append(names, name)
	}
	sort.Strings(names)

	var matched []probe.Trial
	for _, name := range names {
		for _, t := range s.cache[name] {
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

// Ping verifies the results directory is still writable.
func (s *JSONStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("results directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("results path %q is not a directory", s.dir)
	}
	return nil
}

// Close releases the store. Files already written remain on disk.
// Double-close is a no-op.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// ReadResultFile loads one result file into trials.
//
// Accepts files written by this store or by the original study scripts;
// unknown JSON fields are ignored.
func ReadResultFile(path string) ([]probe.Trial, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file %q: %w", path, err)
	}

	var trials []probe.Trial
	if err := json.Unmarshal(raw, &trials); err != nil {
		return nil, fmt.Errorf("failed to parse result file %q: %w", path, err)
	}

	return trials, nil
}

// ReadResultDir loads every "*_results.json" file under dir.
//
// Returns ErrNotFound when the directory holds no result files.
func ReadResultDir(dir string) ([]probe.Trial, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*_results.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob result files: %w", err)
	}
	if len(paths) == 0 {
		return nil, ErrNotFound
	}

	sort.Strings(paths)

	var trials []probe.Trial
	for _, path := range paths {
		fileTrials, err := ReadResultFile(path)
		if err != nil {
			return nil, err
		}
		trials = append(trials, fileTrials...)
	}

	return trials, nil
}
