package probe

import (
	"strings"
	"unicode"
)

// Verdict is a model answer normalized to the three-way scheme the study
// scores against.
type Verdict string

const (
	// VerdictYes means the model affirmed the object is present.
	VerdictYes Verdict = "yes"

	// VerdictNo means the model denied the object is present.
	VerdictNo Verdict = "no"

	// VerdictUnknown means the answer matched neither form: empty output,
	// refusals, or prose that ignored the one-word instruction.
	VerdictUnknown Verdict = "unknown"
)

// NormalizeAnswer maps a raw model answer onto a Verdict.
//
// Matching is prefix-based after trimming and lowercasing: "Yes.", "yes",
// and "yes it is" all count as yes; "No", "no." as no. Anything else is
// unknown. Models sometimes pad output with non-breaking spaces or
// zero-width characters, which are stripped before matching.
func NormalizeAnswer(raw string) Verdict {
	cleaned := stripLLMNoise(raw)
	cleaned = strings.ToLower(strings.TrimSpace(cleaned))

	switch {
	case strings.HasPrefix(cleaned, "y"):
		return VerdictYes
	case strings.HasPrefix(cleaned, "n"):
		return VerdictNo
	default:
		return VerdictUnknown
	}
}

// stripLLMNoise replaces Unicode whitespace with ASCII spaces and drops
// zero-width characters so prefix matching works on noisy output.
func stripLLMNoise(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r == 0x200b || r == 0x200c || r == 0x200d || r == 0xfeff:
			// strip zero-width characters
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsHallucination reports whether the trial affirmed an object the ground
// truth marks absent.
func IsHallucination(t Trial) bool {
	return t.Flag == 0 && !t.Failed() && NormalizeAnswer(t.RawAnswer) == VerdictYes
}
