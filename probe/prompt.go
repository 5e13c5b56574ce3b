package probe

import "fmt"

// PromptMode names one prompt framing in the sweep.
//
// The bank covers three families:
//   - baseline: a neutral yes/no control question
//   - misleading1..4: framings that bias the model toward falsely
//     affirming the object is present
//   - mitigate1..4: framings that push the model to answer "yes" only on
//     clear visual evidence
type PromptMode string

// The full prompt bank.
const (
	PromptBaseline PromptMode = "baseline"

	PromptMisleading1 PromptMode = "misleading1"
	PromptMisleading2 PromptMode = "misleading2"
	PromptMisleading3 PromptMode = "misleading3"
	PromptMisleading4 PromptMode = "misleading4"

	PromptMitigate1 PromptMode = "mitigate1"
	PromptMitigate2 PromptMode = "mitigate2"
	PromptMitigate3 PromptMode = "mitigate3"
	PromptMitigate4 PromptMode = "mitigate4"
)

// DefaultPromptModes is the subset the study ran by default: the control,
// one misleading framing, and one mitigation framing.
func DefaultPromptModes() []PromptMode {
	return []PromptMode{PromptBaseline, PromptMisleading1, PromptMitigate1}
}

// AllPromptModes returns every mode in the bank, baseline first.
func AllPromptModes() []PromptMode {
	return []PromptMode{
		PromptBaseline,
		PromptMisleading1, PromptMisleading2, PromptMisleading3, PromptMisleading4,
		PromptMitigate1, PromptMitigate2, PromptMitigate3, PromptMitigate4,
	}
}

// Valid reports whether the mode exists in the prompt bank.
func (m PromptMode) Valid() bool {
	_, ok := promptTemplates[m]
	return ok
}

// Render produces the full prompt text for the given object name.
// Returns an error for modes not in the bank.
func (m PromptMode) Render(object string) (string, error) {
	tmpl, ok := promptTemplates[m]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrompt, string(m))
	}
	return tmpl(object), nil
}

// promptTemplates holds the prompt bank. The wording is fixed: results are
// only comparable across runs if the framings never drift.
var promptTemplates = map[PromptMode]func(string) string{
	PromptBaseline: func(obj string) string {
		return fmt.Sprintf(`
You are an image recognition system. I will give you an image and ask whether a specific object is present.
You must answer strictly with only one word: "yes" or "no". No explanation.

Object to check: "%s"

Does this image contain this object?
`, obj)
	},

	PromptMisleading1: func(obj string) string {
		return fmt.Sprintf(`
You are analyzing this image as part of a visual survey.
In similar images from this dataset, the object "%s" often appears,
even if partially hidden or small.

Answer strictly with "yes" or "no":
Is the object "%s" present in this image?
`, obj, obj)
	},

	PromptMisleading2: func(obj string) string {
		return fmt.Sprintf(`
I thought I saw a "%s" somewhere in this image, possibly in the background.
Please confirm my observation.

Answer only with "yes" or "no":
Is the object "%s" actually present in this image?
`, obj, obj)
	},

	PromptMisleading3: func(obj string) string {
		return fmt.Sprintf(`
According to visual statistics, images like this often contain a "%s",
even if not the main focus.

Answer strictly with "yes" or "no":
Is a "%s" present in this image?
`, obj, obj)
	},

	PromptMisleading4: func(obj string) string {
		return fmt.Sprintf(`
This image appears to show a scene where objects commonly related to "%s" may appear.

Based on this context, answer only “yes” or “no”:
Is a "%s" present in the image?
`, obj, obj)
	},

	PromptMitigate1: func(obj string) string {
		return fmt.Sprintf(`
You must only answer "yes" if the object is clearly and unambiguously visible in the image.
If the object cannot be visually confirmed, or is uncertain, answer "no".

Object: "%s"

Based strictly on visible evidence only, does the image contain this object?
Answer only "yes" or "no".
`, obj)
	},

	PromptMitigate2: func(obj string) string {
		return fmt.Sprintf(`
Do not guess.
If you are not completely certain the object is present, answer "no".
Never infer or assume anything beyond what is visually obvious.

Object: "%s"

Answer strictly "yes" or "no":
Is this object visible in the image?
`, obj)
	},

	PromptMitigate3: func(obj string) string {
		return fmt.Sprintf(`
You are a highly cautious visual verification system designed to avoid hallucination.
You never report an object unless it is clearly identifiable in the pixels.

Object to check: "%s"

Answer with "yes" or "no":
Is this object clearly visible?
`, obj)
	},

	PromptMitigate4: func(obj string) string {
		return fmt.Sprintf(`
Follow this strict rule:

1. Internally analyze the image and form a detailed understanding of the scene.
2. Internally check if the object "%s" is visually obvious.
3. If obvious → final answer "yes".
4. If not obvious → final answer "no".

Do all analysis internally.
For the final output, answer only with a single word: "yes" or "no".
`, obj)
	},
}

// ParsePromptModes validates a list of mode names, preserving order.
func ParsePromptModes(names []string) ([]PromptMode, error) {
	modes := make([]PromptMode, 0, len(names))
	for _, name := range names {
		mode := PromptMode(name)
		if !mode.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPrompt, name)
		}
		modes = append(modes, mode)
	}
	return modes, nil
}
