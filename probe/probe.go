// Package probe runs object-hallucination sweeps against vision models.
//
// A sweep asks a vision model, under several prompt framings, whether
// objects known to be ABSENT from an image are present. A "yes" on an
// absent object is a hallucination. The probe package loads the ground
// truth, dispatches the prompt x image x object grid to a provider, and
// records one Trial per question asked.
package probe

import "time"

// Case is one question to ask: an image paired with an object known to be
// absent from it.
type Case struct {
	// Folder is the dataset category directory the image lives in
	// (e.g. "person", "car").
	Folder string

	// Filename is the image file name within the folder.
	Filename string

	// Object is the object name substituted into the prompt.
	Object string

	// Flag records the ground truth for the object. Cases built from the
	// "no" column always carry 0: the object is absent, so an affirmative
	// answer is a false positive.
	Flag int

	// ImagePath is the resolved path to the image file.
	ImagePath string
}

// Trial is the recorded outcome of one dispatched case.
//
// The JSON field names match the study's original result files, so result
// directories written by either implementation load interchangeably.
type Trial struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	Filename  string `json:"filename"`
	Folder    string `json:"foldername"`
	Object    string `json:"object"`
	Flag      int    `json:"flag"`
	RawAnswer string `json:"gpt_raw_answer"`

	// Status is empty for a successful trial and "error" when the provider
	// call failed after retries. Err holds the failure message.
	Status string `json:"status,omitempty"`
	Err    string `json:"error,omitempty"`

	// LatencyMS is the provider round-trip time, including retries.
	LatencyMS int64 `json:"latency_ms,omitempty"`

	// TotalTokens is the provider-reported usage, when available.
	TotalTokens int `json:"total_tokens,omitempty"`
}

// Failed reports whether the trial ended in a provider error.
func (t Trial) Failed() bool {
	return t.Status == "error"
}

// Report summarizes one completed sweep.
type Report struct {
	// RunID identifies the sweep.
	RunID string

	// Model is the model identifier the sweep was configured with.
	Model string

	// Prompts lists the prompt modes that ran.
	Prompts []PromptMode

	// Trials holds every recorded outcome, in completion order.
	Trials []Trial

	// Skipped counts dropped prompt and case pairs. A missing image file
	// drops the case under every prompt mode, so Skipped can exceed the
	// skipped_images_total metric, which counts unique files.
	Skipped int

	// Started and Elapsed bound the sweep wall time.
	Started time.Time
	Elapsed time.Duration
}

// Errors returns the trials that failed at the provider.
func (r *Report) Errors() []Trial {
	var failed []Trial
	for _, t := range r.Trials {
		if t.Failed() {
			failed = append(failed, t)
		}
	}
	return failed
}
