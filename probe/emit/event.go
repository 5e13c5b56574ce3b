package emit

// Event represents an observability event emitted during a sweep.
//
// Events provide detailed insight into sweep behavior:
//   - Run start/complete
//   - Trial dispatch and completion
//   - Provider errors and retries
//   - Skipped images
//
// Events are emitted to an Emitter which can:
//   - Log to stdout/stderr
//   - Send to OpenTelemetry
//   - Buffer in memory for inspection
type Event struct {
	// RunID identifies the sweep that emitted this event.
	RunID string

	// Model is the vision model the sweep is configured with.
	Model string

	// Prompt is the prompt mode of the trial, empty for run-level events.
	Prompt string

	// Image is the image filename of the trial, empty for run-level events.
	Image string

	// Object is the probed object of the trial, empty for run-level events.
	Object string

	// Msg is a short event name: "run_start", "run_complete",
	// "trial_start", "trial_end", "trial_error", "image_missing".
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "latency_ms": Provider round-trip time
	//   - "answer": Raw model answer
	//   - "error": Error details
	//   - "tokens": Token usage for the call
	//   - "cases": Case count for run-level events
	Meta map[string]interface{}
}

// Standard event names.
const (
	MsgRunStart     = "run_start"
	MsgRunComplete  = "run_complete"
	MsgTrialStart   = "trial_start"
	MsgTrialEnd     = "trial_end"
	MsgTrialError   = "trial_error"
	MsgImageMissing = "image_missing"
)
