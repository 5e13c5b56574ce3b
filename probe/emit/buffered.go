package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory.
//
// This emitter captures all events and provides query capabilities for
// post-run analysis. Events are organized by runID for efficient
// retrieval and filtering.
//
// Features:
//   - Thread-safe concurrent access
//   - Query by runID with optional filtering
//   - Filter by prompt mode, object, or message type
//   - Clear events by runID or all events
//
// Warning: This emitter stores all events in memory. A full sweep emits
// two events per trial, so prefer LogEmitter for very large runs.
//
// Example usage:
//
//	emitter := emit.NewBufferedEmitter()
//	// ... run sweep ...
//	errors := emitter.HistoryWithFilter("run-001", emit.HistoryFilter{Msg: emit.MsgTrialError})
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // runID -> events
}

// HistoryFilter specifies criteria for filtering captured events.
//
// All filter fields are optional. When multiple fields are set, they are
// combined with AND logic (all conditions must match).
type HistoryFilter struct {
	Prompt string // Filter by prompt mode (empty = no filter)
	Object string // Filter by probed object (empty = no filter)
	Msg    string // Filter by event name (empty = no filter)
}

// NewBufferedEmitter creates a new BufferedEmitter.
//
// Returns a BufferedEmitter that stores all events in memory and provides
// query capabilities. Safe for concurrent use.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit stores an event in the buffer.
//
// Events are organized by runID for efficient retrieval. This method is
// thread-safe and can be called concurrently from multiple goroutines.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// History retrieves all events for a specific runID.
//
// Returns events in the order they were emitted, as a copy safe from
// concurrent modification. Returns an empty slice when no events exist.
func (b *BufferedEmitter) History(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[runID]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// HistoryWithFilter retrieves events for a runID matching the filter.
func (b *BufferedEmitter) HistoryWithFilter(runID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for _, event := range b.events[runID] {
		if filter.Prompt != "" && event.Prompt != filter.Prompt {
			continue
		}
		if filter.Object != "" && event.Object != filter.Object {
			continue
		}
		if filter.Msg != "" && event.Msg != filter.Msg {
			continue
		}
		result = append(result, event)
	}
	return result
}

// Clear removes all events for a specific runID.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.events, runID)
}

// ClearAll removes all captured events.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = make(map[string][]Event)
}

// RunIDs returns the runIDs with captured events.
func (b *BufferedEmitter) RunIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.events))
	for id := range b.events {
		ids = append(ids, id)
	}
	return ids
}
