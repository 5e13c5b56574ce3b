package google

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/visionprobe/probe/vision"
)

type fakeClient struct {
	answer vision.Answer
	errs   []error
	calls  int
}

func (f *fakeClient) generateVisionContent(_ context.Context, _ vision.ImageQuery) (vision.Answer, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return vision.Answer{}, f.errs[i]
	}
	return f.answer, nil
}

func fastPolicy() vision.RetryPolicy {
	return vision.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestNewVisionModelDefaults(t *testing.T) {
	m := NewVisionModel("key", "")
	if m.modelName != "gemini-2.5-flash" {
		t.Errorf("unexpected default model %s", m.modelName)
	}
}

func TestAskImageReturnsAnswer(t *testing.T) {
	fake := &fakeClient{answer: vision.Answer{Text: "no", TotalTokens: 9}}
	m := &VisionModel{modelName: "gemini-2.5-flash", client: fake, policy: fastPolicy()}

	ans, err := m.AskImage(context.Background(), vision.ImageQuery{Prompt: "p", Image: []byte("img")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "no" {
		t.Errorf("expected no, got %q", ans.Text)
	}
}

func TestAskImageSafetyBlockNotRetried(t *testing.T) {
	fake := &fakeClient{
		errs: []error{&SafetyFilterError{Reason: "SAFETY", Category: "HARM_CATEGORY_DANGEROUS_CONTENT"}},
	}
	m := &VisionModel{modelName: "gemini-2.5-flash", client: fake, policy: fastPolicy()}

	_, err := m.AskImage(context.Background(), vision.ImageQuery{Prompt: "p"})
	var safetyErr *SafetyFilterError
	if !errors.As(err, &safetyErr) {
		t.Fatalf("expected SafetyFilterError, got %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("safety blocks must not be retried, got %d calls", fake.calls)
	}
}

func TestAskImageRetriesTransient(t *testing.T) {
	transient := errors.New("503 service unavailable")
	fake := &fakeClient{answer: vision.Answer{Text: "yes"}, errs: []error{transient}}
	m := &VisionModel{modelName: "gemini-2.5-flash", client: fake, policy: fastPolicy()}

	ans, err := m.AskImage(context.Background(), vision.ImageQuery{Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "yes" || fake.calls != 2 {
		t.Errorf("expected retry then success, got %q after %d calls", ans.Text, fake.calls)
	}
}

func TestSafetyFilterErrorMessage(t *testing.T) {
	err := &SafetyFilterError{Reason: "SAFETY"}
	if err.Error() != "content blocked by safety filter: SAFETY" {
		t.Errorf("unexpected message %q", err.Error())
	}

	err.Category = "HARM_CATEGORY_HATE_SPEECH"
	if err.Error() != "content blocked by safety filter: SAFETY (HARM_CATEGORY_HATE_SPEECH)" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
