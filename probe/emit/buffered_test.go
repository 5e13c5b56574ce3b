// Package emit provides observability events for sweep execution.
package emit

import (
	"testing"
	"time"
)

// TestBufferedEmitter_StoresEvents verifies BufferedEmitter stores emitted events.
func TestBufferedEmitter_StoresEvents(t *testing.T) {
	t.Run("stores single event", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		emitter.Emit(Event{
			RunID:  "run-001",
			Model:  "gpt-4o",
			Prompt: "baseline",
			Object: "dog",
			Msg:    MsgTrialStart,
		})

		history := emitter.History("run-001")
		if len(history) != 1 {
			t.Fatalf("expected 1 event, got %d", len(history))
		}
		if history[0].Object != "dog" {
			t.Errorf("expected Object = 'dog', got %q", history[0].Object)
		}
	})

	t.Run("stores multiple events in order", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		events := []Event{
			{RunID: "run-001", Msg: MsgRunStart},
			{RunID: "run-001", Prompt: "baseline", Msg: MsgTrialStart},
			{RunID: "run-001", Prompt: "baseline", Msg: MsgTrialEnd},
		}
		for _, event := range events {
			emitter.Emit(event)
		}

		history := emitter.History("run-001")
		if len(history) != 3 {
			t.Fatalf("expected 3 events, got %d", len(history))
		}
		if history[0].Msg != MsgRunStart || history[2].Msg != MsgTrialEnd {
			t.Error("expected events in emission order")
		}
	})

	t.Run("isolates events by runID", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		emitter.Emit(Event{RunID: "run-001", Msg: "event1"})
		emitter.Emit(Event{RunID: "run-002", Msg: "event2"})
		emitter.Emit(Event{RunID: "run-001", Msg: "event3"})

		if got := len(emitter.History("run-001")); got != 2 {
			t.Errorf("expected 2 events for run-001, got %d", got)
		}
		if got := len(emitter.History("run-002")); got != 1 {
			t.Errorf("expected 1 event for run-002, got %d", got)
		}
	})

	t.Run("returns empty slice for unknown runID", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		history := emitter.History("unknown-run")
		if history == nil {
			t.Error("expected empty slice, got nil")
		}
		if len(history) != 0 {
			t.Errorf("expected 0 events, got %d", len(history))
		}
	})
}

// TestBufferedEmitter_HistoryWithFilter verifies event filtering.
func TestBufferedEmitter_HistoryWithFilter(t *testing.T) {
	t.Run("filters by prompt", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		events := []Event{
			{RunID: "run-001", Prompt: "baseline", Msg: MsgTrialEnd},
			{RunID: "run-001", Prompt: "misleading1", Msg: MsgTrialEnd},
			{RunID: "run-001", Prompt: "baseline", Msg: MsgTrialEnd},
		}
		for _, event := range events {
			emitter.Emit(event)
		}

		history := emitter.HistoryWithFilter("run-001", HistoryFilter{Prompt: "baseline"})
		if len(history) != 2 {
			t.Fatalf("expected 2 events, got %d", len(history))
		}
		for _, event := range history {
			if event.Prompt != "baseline" {
				t.Errorf("expected Prompt = 'baseline', got %q", event.Prompt)
			}
		}
	})

	t.Run("filters by object", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		emitter.Emit(Event{RunID: "run-001", Object: "dog", Msg: MsgTrialEnd})
		emitter.Emit(Event{RunID: "run-001", Object: "cat", Msg: MsgTrialEnd})

		history := emitter.HistoryWithFilter("run-001", HistoryFilter{Object: "cat"})
		if len(history) != 1 || history[0].Object != "cat" {
			t.Errorf("expected 1 cat event, got %d", len(history))
		}
	})

	t.Run("filters by message", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		events := []Event{
			{RunID: "run-001", Msg: MsgTrialStart},
			{RunID: "run-001", Msg: MsgTrialError},
			{RunID: "run-001", Msg: MsgTrialStart},
		}
		for _, event := range events {
			emitter.Emit(event)
		}

		history := emitter.HistoryWithFilter("run-001", HistoryFilter{Msg: MsgTrialError})
		if len(history) != 1 {
			t.Fatalf("expected 1 event, got %d", len(history))
		}
	})

	t.Run("combines multiple filters", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		events := []Event{
			{RunID: "run-001", Prompt: "baseline", Object: "dog", Msg: MsgTrialEnd},
			{RunID: "run-001", Prompt: "baseline", Object: "cat", Msg: MsgTrialEnd},
			{RunID: "run-001", Prompt: "mitigate1", Object: "dog", Msg: MsgTrialEnd},
			{RunID: "run-001", Prompt: "baseline", Object: "dog", Msg: MsgTrialError},
		}
		for _, event := range events {
			emitter.Emit(event)
		}

		history := emitter.HistoryWithFilter("run-001", HistoryFilter{
			Prompt: "baseline",
			Object: "dog",
			Msg:    MsgTrialEnd,
		})
		if len(history) != 1 {
			t.Fatalf("expected 1 event, got %d", len(history))
		}
	})

	t.Run("empty filter returns all events", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		for i := 0; i < 3; i++ {
			emitter.Emit(Event{RunID: "run-001", Msg: MsgTrialEnd})
		}

		history := emitter.HistoryWithFilter("run-001", HistoryFilter{})
		if len(history) != 3 {
			t.Fatalf("expected 3 events, got %d", len(history))
		}
	})
}

// TestBufferedEmitter_Clear verifies clearing stored events.
func TestBufferedEmitter_Clear(t *testing.T) {
	t.Run("clears events for one runID", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		emitter.Emit(Event{RunID: "run-001", Msg: "event1"})
		emitter.Emit(Event{RunID: "run-002", Msg: "event2"})

		emitter.Clear("run-001")

		if got := len(emitter.History("run-001")); got != 0 {
			t.Errorf("expected 0 events for run-001, got %d", got)
		}
		if got := len(emitter.History("run-002")); got != 1 {
			t.Errorf("expected 1 event for run-002, got %d", got)
		}
	})

	t.Run("ClearAll removes everything", func(t *testing.T) {
		emitter := NewBufferedEmitter()

		emitter.Emit(Event{RunID: "run-001", Msg: "event1"})
		emitter.Emit(Event{RunID: "run-002", Msg: "event2"})

		emitter.ClearAll()

		if len(emitter.History("run-001")) != 0 || len(emitter.History("run-002")) != 0 {
			t.Error("expected all events to be cleared")
		}
		if len(emitter.RunIDs()) != 0 {
			t.Error("expected no runIDs after ClearAll")
		}
	})
}

// TestBufferedEmitter_RunIDs verifies runID enumeration.
func TestBufferedEmitter_RunIDs(t *testing.T) {
	emitter := NewBufferedEmitter()

	emitter.Emit(Event{RunID: "run-001", Msg: "event1"})
	emitter.Emit(Event{RunID: "run-002", Msg: "event2"})
	emitter.Emit(Event{RunID: "run-001", Msg: "event3"})

	ids := emitter.RunIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 runIDs, got %d", len(ids))
	}

	seen := make(map[string]bool)
	for _, id := range ids {
		seen[id] = true
	}
	if !seen["run-001"] || !seen["run-002"] {
		t.Errorf("expected run-001 and run-002, got %v", ids)
	}
}

// TestBufferedEmitter_ThreadSafety verifies concurrent access safety.
func TestBufferedEmitter_ThreadSafety(t *testing.T) {
	emitter := NewBufferedEmitter()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				emitter.Emit(Event{RunID: "run-001", Msg: MsgTrialEnd})
			}
			done <- true
		}()
	}

	readDone := make(chan bool)
	go func() {
		for i := 0; i < 100; i++ {
			emitter.History("run-001")
			time.Sleep(1 * time.Millisecond)
		}
		readDone <- true
	}()

	for i := 0; i < 10; i++ {
		<-done
	}
	<-readDone

	history := emitter.History("run-001")
	if len(history) != 1000 {
		t.Errorf("expected 1000 events, got %d", len(history))
	}
}

// TestBufferedEmitter_InterfaceContract verifies BufferedEmitter implements Emitter.
func TestBufferedEmitter_InterfaceContract(_ *testing.T) {
	var _ Emitter = NewBufferedEmitter()
}
