package probe

import "testing"

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		raw  string
		want Verdict
	}{
		{"yes", VerdictYes},
		{"Yes", VerdictYes},
		{"YES.", VerdictYes},
		{" yes it is", VerdictYes},
		{"no", VerdictNo},
		{"No.", VerdictNo},
		{"\nNo\n", VerdictNo},
		{"maybe", VerdictUnknown},
		{"", VerdictUnknown},
		{"I cannot determine that", VerdictUnknown},
		{"\u00a0yes", VerdictYes},           // non-breaking space
		{"\u200byes", VerdictYes},           // zero-width space
		{"\ufeffNo.", VerdictNo},            // byte order mark
		{"\u200b\u00a0No.", VerdictNo},      // both kinds of noise
		{"unknown", VerdictUnknown},
	}

	for _, tt := range tests {
		if got := NormalizeAnswer(tt.raw); got != tt.want {
			t.Errorf("NormalizeAnswer(%q): expected %s, got %s", tt.raw, tt.want, got)
		}
	}
}

func TestIsHallucination(t *testing.T) {
	tests := []struct {
		name  string
		trial Trial
		want  bool
	}{
		{"absent object affirmed", Trial{Flag: 0, RawAnswer: "Yes"}, true},
		{"absent object denied", Trial{Flag: 0, RawAnswer: "no"}, false},
		{"absent object unknown", Trial{Flag: 0, RawAnswer: "unsure"}, false},
		{"present object affirmed", Trial{Flag: 1, RawAnswer: "yes"}, false},
		{"failed trial", Trial{Flag: 0, RawAnswer: "yes", Status: "error"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHallucination(tt.trial); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
