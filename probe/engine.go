package probe

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/visionprobe/probe/emit"
	"github.com/dshills/visionprobe/probe/vision"
)

// TrialSink receives each completed trial as the sweep produces it.
//
// The store package's backends (JSON result files, SQLite, MySQL,
// in-memory) all satisfy this interface. Sink calls are serialized by the
// engine, so implementations do not need their own write locking to be
// correct under a concurrent sweep.
type TrialSink interface {
	SaveTrial(ctx context.Context, runID string, t Trial) error
}

// Engine dispatches a hallucination sweep against one vision model.
//
// The Engine is the core runtime that:
//   - Expands prompt modes x cases into the trial grid
//   - Preloads image bytes, skipping cases whose file is missing
//   - Executes provider calls through a bounded worker pool
//   - Records one Trial per dispatched case
//   - Persists trials via the configured sink
//   - Emits observability events and Prometheus metrics
//
// Example:
//
//	model := openai.NewVisionModel(apiKey, "gpt-4o")
//	engine := probe.NewEngine(model, "gpt-4o",
//	    probe.WithPrompts(probe.DefaultPromptModes()...),
//	    probe.WithMaxConcurrent(4),
//	)
//
//	rows, _ := probe.LoadGroundTruth("GroundTruth.csv")
//	cases := probe.BuildCases(rows, "images", []string{"person", "car"})
//
//	report, err := engine.Run(ctx, "", cases)
type Engine struct {
	model     vision.Model
	modelName string
	cfg       engineConfig
}

// NewEngine creates a sweep engine for the given model.
//
// Parameters:
//   - model: Provider adapter to dispatch trials through.
//   - modelName: Model identifier recorded on every trial. This is the
//     configured name, not the provider-reported one, so result files
//     group consistently even when the provider resolves aliases.
//   - opts: Functional options; see the With* functions.
func NewEngine(model vision.Model, modelName string, opts ...Option) *Engine {
	cfg := engineConfig{
		prompts:       DefaultPromptModes(),
		maxConcurrent: 1,
		emitter:       emit.NewNullEmitter(),
		readImage:     os.ReadFile,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxConcurrent < 1 {
		cfg.maxConcurrent = 1
	}
	if cfg.emitter == nil {
		cfg.emitter = emit.NewNullEmitter()
	}
	if cfg.readImage == nil {
		cfg.readImage = os.ReadFile
	}

	return &Engine{
		model:     model,
		modelName: modelName,
		cfg:       cfg,
	}
}

// job is one unit of work: a case under a specific prompt mode.
type job struct {
	mode PromptMode
	c    Case
}

// Run executes the sweep over the given cases.
//
// Parameters:
//   - ctx: Cancels the sweep; in-flight provider calls are interrupted.
//   - runID: Identifier recorded on events and persisted trials. Empty
//     generates a fresh UUID.
//   - cases: The (image, absent object) grid, typically from BuildCases.
//
// Returns the Report of all completed trials. On context cancellation or
// a sink failure the partial report is returned alongside the error.
//
// Trials land in the report in completion order; scoring is
// order-independent.
func (e *Engine) Run(ctx context.Context, runID string, cases []Case) (*Report, error) {
	if e.model == nil {
		return nil, ErrNoModel
	}
	if len(e.cfg.prompts) == 0 {
		return nil, fmt.Errorf("%w: empty prompt mode list", ErrUnknownPrompt)
	}
	for _, mode := range e.cfg.prompts {
		if !mode.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPrompt, string(mode))
		}
	}
	if len(cases) == 0 {
		return nil, ErrNoCases
	}

	if runID == "" {
		runID = uuid.NewString()
	}

	report := &Report{
		RunID:   runID,
		Model:   e.modelName,
		Prompts: e.cfg.prompts,
		Started: time.Now(),
	}

	// Preload image bytes once per unique path. A missing or unreadable
	// image drops every case that references it, across all prompt modes.
	images, missing := e.loadImages(runID, cases)

	var jobs []job
	for _, mode := range e.cfg.prompts {
		for _, c := range cases {
			if missing[c.ImagePath] {
				report.Skipped++
				continue
			}
			jobs = append(jobs, job{mode: mode, c: c})
		}
	}

	e.cfg.emitter.Emit(emit.Event{
		RunID: runID,
		Model: e.modelName,
		Msg:   emit.MsgRunStart,
		Meta: map[string]interface{}{
			"cases":   len(cases),
			"prompts": len(e.cfg.prompts),
			"trials":  len(jobs),
			"skipped": report.Skipped,
		},
	})

	if len(jobs) == 0 {
		report.Elapsed = time.Since(report.Started)
		return report, ErrNoCases
	}

	err := e.dispatch(ctx, runID, jobs, images, report)

	report.Elapsed = time.Since(report.Started)
	e.cfg.emitter.Emit(emit.Event{
		RunID: runID,
		Model: e.modelName,
		Msg:   emit.MsgRunComplete,
		Meta: map[string]interface{}{
			"trials":     len(report.Trials),
			"errors":     len(report.Errors()),
			"skipped":    report.Skipped,
			"elapsed_ms": report.Elapsed.Milliseconds(),
		},
	})

	return report, err
}

// loadImages reads each unique image once and reports unreadable paths.
func (e *Engine) loadImages(runID string, cases []Case) (map[string][]byte, map[string]bool) {
	images := make(map[string][]byte)
	missing := make(map[string]bool)

	for _, c := range cases {
		if _, seen := images[c.ImagePath]; seen {
			continue
		}
		if missing[c.ImagePath] {
			continue
		}

		data, err := e.cfg.readImage(c.ImagePath)
		if err != nil {
			missing[c.ImagePath] = true
			if e.cfg.metrics != nil {
				e.cfg.metrics.IncrementSkippedImages()
			}
			e.cfg.emitter.Emit(emit.Event{
				RunID: runID,
				Model: e.modelName,
				Image: c.Filename,
				Msg:   emit.MsgImageMissing,
				Meta:  map[string]interface{}{"path": c.ImagePath, "error": err.Error()},
			})
			continue
		}
		images[c.ImagePath] = data
	}

	return images, missing
}

// dispatch runs the worker pool and collects trials into the report.
func (e *Engine) dispatch(ctx context.Context, runID string, jobs []job, images map[string][]byte, report *Report) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobCh := make(chan job)
	resultCh := make(chan Trial)

	var inflight int64
	var inflightMu sync.Mutex
	trackInflight := func(delta int) {
		if e.cfg.metrics == nil {
			return
		}
		inflightMu.Lock()
		inflight += int64(delta)
		e.cfg.metrics.UpdateInflightRequests(int(inflight))
		inflightMu.Unlock()
	}

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.maxConcurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				if ctx.Err() != nil {
					return
				}
				trackInflight(1)
				trial := e.runTrial(ctx, runID, j, images[j.c.ImagePath])
				trackInflight(-1)

				select {
				case resultCh <- trial:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs, tracking queue depth as work drains.
	go func() {
		defer close(jobCh)
		for i, j := range jobs {
			if e.cfg.metrics != nil {
				e.cfg.metrics.UpdateQueueDepth(len(jobs) - i)
			}
			select {
			case jobCh <- j:
			case <-ctx.Done():
				return
			}
		}
		if e.cfg.metrics != nil {
			e.cfg.metrics.UpdateQueueDepth(0)
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Collect on this goroutine so sink writes stay serialized.
	var sinkErr error
	for trial := range resultCh {
		report.Trials = append(report.Trials, trial)

		if e.cfg.sink != nil && sinkErr == nil {
			if err := e.cfg.sink.SaveTrial(ctx, runID, trial); err != nil {
				sinkErr = fmt.Errorf("failed to persist trial: %w", err)
				cancel()
			}
		}
	}

	if sinkErr != nil {
		return sinkErr
	}
	return ctx.Err()
}

// runTrial executes one provider call and records the outcome.
func (e *Engine) runTrial(ctx context.Context, runID string, j job, image []byte) Trial {
	prompt, err := j.mode.Render(j.c.Object)
	if err != nil {
		// Modes are validated in Run; reaching this means the bank changed
		// mid-sweep, which is a programming error worth surfacing as a trial.
		return Trial{
			Model:    e.modelName,
			Prompt:   string(j.mode),
			Filename: j.c.Filename,
			Folder:   j.c.Folder,
			Object:   j.c.Object,
			Flag:     j.c.Flag,
			Status:   "error",
			Err:      err.Error(),
		}
	}

	e.cfg.emitter.Emit(emit.Event{
		RunID:  runID,
		Model:  e.modelName,
		Prompt: string(j.mode),
		Image:  j.c.Filename,
		Object: j.c.Object,
		Msg:    emit.MsgTrialStart,
	})

	callCtx := ctx
	if e.cfg.requestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	ans, err := e.model.AskImage(callCtx, vision.ImageQuery{
		Prompt:    prompt,
		Image:     image,
		MaxTokens: e.cfg.maxTokens,
	})
	latency := time.Since(start)

	trial := Trial{
		Model:       e.modelName,
		Prompt:      string(j.mode),
		Filename:    j.c.Filename,
		Folder:      j.c.Folder,
		Object:      j.c.Object,
		Flag:        j.c.Flag,
		LatencyMS:   latency.Milliseconds(),
		TotalTokens: ans.TotalTokens,
	}

	if err != nil {
		trial.Status = "error"
		trial.Err = err.Error()

		if e.cfg.metrics != nil {
			e.cfg.metrics.RecordRequestLatency(e.modelName, string(j.mode), latency, "error")
		}
		e.cfg.emitter.Emit(emit.Event{
			RunID:  runID,
			Model:  e.modelName,
			Prompt: string(j.mode),
			Image:  j.c.Filename,
			Object: j.c.Object,
			Msg:    emit.MsgTrialError,
			Meta: map[string]interface{}{
				"error":      err.Error(),
				"latency_ms": latency.Milliseconds(),
			},
		})
		return trial
	}

	trial.RawAnswer = ans.Text

	if e.cfg.metrics != nil {
		e.cfg.metrics.RecordRequestLatency(e.modelName, string(j.mode), latency, "success")
		if IsHallucination(trial) {
			e.cfg.metrics.IncrementHallucinations(e.modelName, string(j.mode))
		}
	}

	e.cfg.emitter.Emit(emit.Event{
		RunID:  runID,
		Model:  e.modelName,
		Prompt: string(j.mode),
		Image:  j.c.Filename,
		Object: j.c.Object,
		Msg:    emit.MsgTrialEnd,
		Meta: map[string]interface{}{
			"answer":     ans.Text,
			"latency_ms": latency.Milliseconds(),
			"tokens":     ans.TotalTokens,
		},
	})

	return trial
}
