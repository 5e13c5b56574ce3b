package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEmitter implements Emitter by writing structured log output to a writer.
//
// Supports two output modes:
//   - Text mode (default): Human-readable format with key=value pairs
//   - JSON mode: Machine-readable JSON format, one event per line
//
// Example text output:
//
//	[trial_end] runID=run-001 model=gpt-4o prompt=baseline image=000123.jpg object=dog meta={"answer":"no","latency_ms":412}
//
// Example JSON output:
//
//	{"runID":"run-001","model":"gpt-4o","prompt":"baseline","image":"000123.jpg","object":"dog","msg":"trial_end","meta":{"answer":"no"}}
//
// Usage:
//
//	// Text output to stdout
//	emitter := emit.NewLogEmitter(os.Stdout, false)
//
//	// JSON output to file
//	f, _ := os.Create("events.jsonl")
//	defer f.Close()
//	emitter := emit.NewLogEmitter(f, true)
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a new LogEmitter.
//
// Parameters:
//   - writer: Where to write the log output (e.g., os.Stdout, file).
//     nil defaults to os.Stdout.
//   - jsonMode: If true, emit JSONL; if false, emit text format.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{
		writer:   writer,
		jsonMode: jsonMode,
	}
}

// Emit writes an event to the configured writer.
//
// Safe for concurrent use: the worker pool emits from many goroutines and
// interleaved partial lines would corrupt JSONL output.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

// emitJSON writes the event as a single JSONL line.
func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		RunID  string                 `json:"runID"`
		Model  string                 `json:"model"`
		Prompt string                 `json:"prompt,omitempty"`
		Image  string                 `json:"image,omitempty"`
		Object string                 `json:"object,omitempty"`
		Msg    string                 `json:"msg"`
		Meta   map[string]interface{} `json:"meta,omitempty"`
	}{
		RunID:  event.RunID,
		Model:  event.Model,
		Prompt: event.Prompt,
		Image:  event.Image,
		Object: event.Object,
		Msg:    event.Msg,
		Meta:   event.Meta,
	})
	if err != nil {
		fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}

	fmt.Fprintf(l.writer, "%s\n", data)
}

// emitText writes the event in human-readable form.
func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] runID=%s model=%s", event.Msg, event.RunID, event.Model)

	if event.Prompt != "" {
		fmt.Fprintf(l.writer, " prompt=%s", event.Prompt)
	}
	if event.Image != "" {
		fmt.Fprintf(l.writer, " image=%s", event.Image)
	}
	if event.Object != "" {
		fmt.Fprintf(l.writer, " object=%s", event.Object)
	}

	if len(event.Meta) > 0 {
		metaJSON, err := json.Marshal(event.Meta)
		if err == nil {
			fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}

	fmt.Fprintln(l.writer)
}
