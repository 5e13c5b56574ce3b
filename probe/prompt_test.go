package probe

import (
	"errors"
	"strings"
	"testing"
)

func TestPromptModeRenderSubstitutesObject(t *testing.T) {
	for _, mode := range AllPromptModes() {
		text, err := mode.Render("bicycle")
		if err != nil {
			t.Fatalf("Render(%s) returned error: %v", mode, err)
		}
		if !strings.Contains(text, "bicycle") {
			t.Errorf("Render(%s) does not mention the object:\n%s", mode, text)
		}
		if !strings.Contains(strings.ToLower(text), "yes") || !strings.Contains(strings.ToLower(text), "no") {
			t.Errorf("Render(%s) does not instruct a yes/no answer:\n%s", mode, text)
		}
	}
}

func TestPromptModeRenderUnknown(t *testing.T) {
	_, err := PromptMode("sarcastic").Render("dog")
	if !errors.Is(err, ErrUnknownPrompt) {
		t.Fatalf("expected ErrUnknownPrompt, got %v", err)
	}
}

func TestPromptModeValid(t *testing.T) {
	if !PromptBaseline.Valid() {
		t.Error("baseline should be valid")
	}
	if PromptMode("baseline2").Valid() {
		t.Error("baseline2 should not be valid")
	}
}

func TestPromptBankIsStable(t *testing.T) {
	// Results are only comparable across runs if the wording never
	// drifts. Pin a few distinctive phrases.
	tests := []struct {
		mode PromptMode
		want string
	}{
		{PromptBaseline, "You are an image recognition system"},
		{PromptMisleading1, "often appears"},
		{PromptMisleading2, "I thought I saw"},
		{PromptMitigate1, "clearly and unambiguously visible"},
		{PromptMitigate2, "Do not guess"},
		{PromptMitigate4, "Internally analyze the image"},
	}

	for _, tt := range tests {
		text, err := tt.mode.Render("cat")
		if err != nil {
			t.Fatalf("Render(%s) returned error: %v", tt.mode, err)
		}
		if !strings.Contains(text, tt.want) {
			t.Errorf("Render(%s) missing phrase %q", tt.mode, tt.want)
		}
	}
}

func TestDefaultPromptModes(t *testing.T) {
	modes := DefaultPromptModes()
	want := []PromptMode{PromptBaseline, PromptMisleading1, PromptMitigate1}
	if len(modes) != len(want) {
		t.Fatalf("expected %d default modes, got %d", len(want), len(modes))
	}
	for i, m := range want {
		if modes[i] != m {
			t.Errorf("default mode %d: expected %s, got %s", i, m, modes[i])
		}
	}
}

func TestParsePromptModes(t *testing.T) {
	modes, err := ParsePromptModes([]string{"baseline", "mitigate3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(modes) != 2 || modes[0] != PromptBaseline || modes[1] != PromptMitigate3 {
		t.Errorf("unexpected modes: %v", modes)
	}

	if _, err := ParsePromptModes([]string{"baseline", "nope"}); !errors.Is(err, ErrUnknownPrompt) {
		t.Fatalf("expected ErrUnknownPrompt, got %v", err)
	}
}
