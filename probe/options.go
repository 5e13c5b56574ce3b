package probe

import (
	"time"

	"github.com/dshills/visionprobe/probe/emit"
)

// Option is a functional option for configuring an Engine.
//
// Example:
//
//	engine := probe.NewEngine(
//	    model,
//	    "gpt-4o",
//	    probe.WithPrompts(probe.DefaultPromptModes()...),
//	    probe.WithMaxConcurrent(4),
//	    probe.WithRequestTimeout(2*time.Minute),
//	)
type Option func(*engineConfig)

// engineConfig collects options before applying them to an Engine.
type engineConfig struct {
	prompts        []PromptMode
	maxConcurrent  int
	requestTimeout time.Duration
	maxTokens      int
	emitter        emit.Emitter
	metrics        *PrometheusMetrics
	sink           TrialSink
	readImage      func(path string) ([]byte, error)
}

// WithPrompts selects the prompt modes to sweep.
//
// Default: DefaultPromptModes() (baseline, misleading1, mitigate1).
// Unknown modes are rejected when Run is called.
func WithPrompts(modes ...PromptMode) Option {
	return func(cfg *engineConfig) {
		cfg.prompts = modes
	}
}

// WithMaxConcurrent bounds how many provider calls run at once.
//
// Default: 1 (sequential, the gentlest on rate limits). Values above the
// provider's concurrency allowance trade retry churn for wall time.
func WithMaxConcurrent(n int) Option {
	return func(cfg *engineConfig) {
		cfg.maxConcurrent = n
	}
}

// WithRequestTimeout bounds a single trial, including its retry ladder.
//
// Default: 0 (no per-trial deadline; the run context still applies).
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) {
		cfg.requestTimeout = d
	}
}

// WithMaxTokens overrides the completion budget passed to the provider.
//
// Default: 0, letting each adapter pick its model-appropriate default.
func WithMaxTokens(n int) Option {
	return func(cfg *engineConfig) {
		cfg.maxTokens = n
	}
}

// WithEmitter sets the observability event receiver.
//
// Default: emit.NewNullEmitter().
func WithEmitter(emitter emit.Emitter) Option {
	return func(cfg *engineConfig) {
		cfg.emitter = emitter
	}
}

// WithMetrics attaches a Prometheus metrics collector.
//
// Default: no metrics recording.
func WithMetrics(metrics *PrometheusMetrics) Option {
	return func(cfg *engineConfig) {
		cfg.metrics = metrics
	}
}

// WithTrialSink persists each completed trial as it finishes.
//
// Default: trials are only collected into the in-memory Report.
func WithTrialSink(sink TrialSink) Option {
	return func(cfg *engineConfig) {
		cfg.sink = sink
	}
}

// WithImageReader replaces how image bytes are loaded. Used in tests to
// run sweeps without real image files on disk.
func WithImageReader(read func(path string) ([]byte, error)) Option {
	return func(cfg *engineConfig) {
		cfg.readImage = read
	}
}
