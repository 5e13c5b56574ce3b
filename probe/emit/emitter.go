package emit

// Emitter receives and processes observability events from sweep execution.
//
// Emitters enable pluggable observability backends:
//   - Logging: stdout, files
//   - Distributed tracing: OpenTelemetry
//   - In-memory capture for tests and dashboards
//
// Implementations should be:
//   - Non-blocking: Avoid slowing down the sweep
//   - Thread-safe: May be called concurrently from the worker pool
//   - Resilient: Handle failures gracefully (don't crash the sweep)
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	//
	// Implementations should not block sweep execution. If the backend is
	// unavailable or slow, events should be buffered, dropped with internal
	// logging, or sent asynchronously.
	//
	// Emit should not panic. Errors should be handled internally.
	Emit(event Event)
}
