package score

import (
	"sort"
	"strconv"

	"github.com/dshills/visionprobe/probe"
)

// TypicalCase pairs a baseline trial with a comparison trial on the same
// (filename, folder, object, flag) identity, showing how the prompt
// framing flipped the answer.
type TypicalCase struct {
	Filename string
	Folder   string
	Object   string
	Flag     int

	// BaselineAnswer and OtherAnswer are the normalized verdicts.
	BaselineAnswer string
	OtherAnswer    string

	// BaselineRaw and OtherRaw are the verbatim model answers.
	BaselineRaw string
	OtherRaw    string

	// OtherPrompt names the compared prompt mode.
	OtherPrompt string
}

type caseIdentity struct {
	filename, folder, object string
	flag                     int
}

func indexByIdentity(trials []probe.Trial, prompt string) map[caseIdentity]probe.Trial {
	idx := make(map[caseIdentity]probe.Trial)
	for _, t := range trials {
		if t.Prompt != prompt {
			continue
		}
		idx[caseIdentity{t.Filename, t.Folder, t.Object, t.Flag}] = t
	}
	return idx
}

func joinCases(trials []probe.Trial, basePrompt, otherPrompt string, baseWant, otherWant probe.Verdict) []TypicalCase {
	others := indexByIdentity(trials, otherPrompt)

	var cases []TypicalCase
	seen := make(map[caseIdentity]bool)
	for _, t := range trials {
		if t.Prompt != basePrompt || t.Flag != 0 {
			continue
		}
		id := caseIdentity{t.Filename, t.Folder, t.Object, t.Flag}
		if seen[id] {
			continue
		}
		seen[id] = true

		other, ok := others[id]
		if !ok {
			continue
		}
		if probe.NormalizeAnswer(t.RawAnswer) != baseWant {
			continue
		}
		if probe.NormalizeAnswer(other.RawAnswer) != otherWant {
			continue
		}

		cases = append(cases, TypicalCase{
			Filename:       t.Filename,
			Folder:         t.Folder,
			Object:         t.Object,
			Flag:           t.Flag,
			BaselineAnswer: string(baseWant),
			OtherAnswer:    string(otherWant),
			BaselineRaw:    t.RawAnswer,
			OtherRaw:       other.RawAnswer,
			OtherPrompt:    otherPrompt,
		})
	}

	sort.Slice(cases, func(i, j int) bool {
		a, b := cases[i], cases[j]
		if a.Folder != b.Folder {
			return a.Folder < b.Folder
		}
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Object < b.Object
	})

	return cases
}

// FindCaseA mines trials where the baseline prompt answered correctly
// (no) but the misleading prompt hallucinated (yes). These are the
// images where suggestive framing alone induced the hallucination.
//
// A prompt mode absent from the trial set yields an empty list, not an
// error.
func FindCaseA(trials []probe.Trial, baselinePrompt, misleadingPrompt string) []TypicalCase {
	return joinCases(trials, baselinePrompt, misleadingPrompt, probe.VerdictNo, probe.VerdictYes)
}

// FindCaseB mines trials where the baseline prompt hallucinated (yes)
// but the mitigation prompt corrected it (no). These are the images
// where cautious framing repaired the baseline failure.
func FindCaseB(trials []probe.Trial, baselinePrompt, mitigationPrompt string) []TypicalCase {
	return joinCases(trials, baselinePrompt, mitigationPrompt, probe.VerdictYes, probe.VerdictNo)
}

// WriteCasesCSV writes mined cases to path.
//
// Columns: filename, foldername, object, flag, baseline_answer,
// {other}_answer, baseline_raw, {other}_raw, where {other} is the
// compared prompt mode.
func WriteCasesCSV(path, otherLabel string, cases []TypicalCase) error {
	header := []string{
		"filename", "foldername", "object", "flag",
		"baseline_answer", otherLabel + "_answer",
		"baseline_raw", otherLabel + "_raw",
	}

	records := make([][]string, 0, len(cases))
	for _, c := range cases {
		records = append(records, []string{
			c.Filename, c.Folder, c.Object, strconv.Itoa(c.Flag),
			c.BaselineAnswer, c.OtherAnswer,
			c.BaselineRaw, c.OtherRaw,
		})
	}

	return writeCSV(path, header, records)
}
