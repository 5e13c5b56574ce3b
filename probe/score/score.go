// Package score turns recorded trials into hallucination metrics.
//
// The scoring rule: a trial is a false positive when the ground truth
// marks the object absent (flag 0) and the model's answer normalizes to
// yes. Rates are false positives over totals, grouped overall (model,
// prompt), by object, and by folder.
//
// Trials whose provider call failed still count toward totals; their
// empty answer normalizes to unknown, so they can never be false
// positives. This keeps rates comparable with result files that carry
// no error status.
package score

import (
	"sort"

	"github.com/dshills/visionprobe/probe"
)

// Normalize maps a raw answer onto yes, no, or unknown.
//
// It is probe.NormalizeAnswer re-exported as a string for callers that
// build their own tables.
func Normalize(raw string) string {
	return string(probe.NormalizeAnswer(raw))
}

// IsFalsePositive reports whether the trial affirmed an absent object.
func IsFalsePositive(t probe.Trial) bool {
	return t.Flag == 0 && probe.NormalizeAnswer(t.RawAnswer) == probe.VerdictYes
}

// Row is one line of a metric grouping. Object and Folder are set only
// in the groupings keyed on them.
type Row struct {
	Model  string
	Prompt string
	Object string
	Folder string
	Total  int
	FP     int
}

// HallucinationRate returns FP/Total, or 0 for an empty row.
func (r Row) HallucinationRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.FP) / float64(r.Total)
}

type groupKey struct {
	model, prompt, object, folder string
}

func aggregate(trials []probe.Trial, key func(probe.Trial) groupKey) []Row {
	counts := make(map[groupKey]*Row)
	var order []groupKey

	for _, t := range trials {
		k := key(t)
		row, seen := counts[k]
		if !seen {
			row = &Row{Model: k.model, Prompt: k.prompt, Object: k.object, Folder: k.folder}
			counts[k] = row
			order = append(order, k)
		}
		row.Total++
		if IsFalsePositive(t) {
			row.FP++
		}
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.model != b.model {
			return a.model < b.model
		}
		if a.prompt != b.prompt {
			return a.prompt < b.prompt
		}
		if a.object != b.object {
			return a.object < b.object
		}
		return a.folder < b.folder
	})

	rows := make([]Row, 0, len(order))
	for _, k := range order {
		rows = append(rows, *counts[k])
	}
	return rows
}

// Overall groups trials by (model, prompt).
func Overall(trials []probe.Trial) []Row {
	return aggregate(trials, func(t probe.Trial) groupKey {
		return groupKey{model: t.Model, prompt: t.Prompt}
	})
}

// ByObject groups trials by (model, prompt, object).
func ByObject(trials []probe.Trial) []Row {
	return aggregate(trials, func(t probe.Trial) groupKey {
		return groupKey{model: t.Model, prompt: t.Prompt, object: t.Object}
	})
}

// ByFolder groups trials by (model, prompt, folder).
func ByFolder(trials []probe.Trial) []Row {
	return aggregate(trials, func(t probe.Trial) groupKey {
		return groupKey{model: t.Model, prompt: t.Prompt, folder: t.Folder}
	})
}

// Matrix is a pivot of hallucination rates: one row per key (object or
// folder), one column per prompt mode. Has marks which cells were
// actually observed; unobserved cells hold zero.
type Matrix struct {
	RowKeys []string
	Cols    []string
	Rates   [][]float64
	Has     [][]bool
}

// Pivot builds a rate matrix from grouped rows, keyed by the given
// extractor (object or folder name).
func Pivot(rows []Row, rowKey func(Row) string) Matrix {
	colSet := make(map[string]int)
	rowSet := make(map[string]int)
	var cols, keys []string

	for _, r := range rows {
		if _, ok := colSet[r.Prompt]; !ok {
			colSet[r.Prompt] = 0
			cols = append(cols, r.Prompt)
		}
		k := rowKey(r)
		if _, ok := rowSet[k]; !ok {
			rowSet[k] = 0
			keys = append(keys, k)
		}
	}
	sort.Strings(cols)
	sort.Strings(keys)
	for i, c := range cols {
		colSet[c] = i
	}
	for i, k := range keys {
		rowSet[k] = i
	}

	m := Matrix{RowKeys: keys, Cols: cols}
	m.Rates = make([][]float64, len(keys))
	m.Has = make([][]bool, len(keys))
	for i := range m.Rates {
		m.Rates[i] = make([]float64, len(cols))
		m.Has[i] = make([]bool, len(cols))
	}

	for _, r := range rows {
		i := rowSet[rowKey(r)]
		j := colSet[r.Prompt]
		m.Rates[i][j] = r.HallucinationRate()
		m.Has[i][j] = true
	}

	return m
}

// PivotByObject pivots object-level rows into an object x prompt matrix.
func PivotByObject(rows []Row) Matrix {
	return Pivot(rows, func(r Row) string { return r.Object })
}

// PivotByFolder pivots folder-level rows into a folder x prompt matrix.
func PivotByFolder(rows []Row) Matrix {
	return Pivot(rows, func(r Row) string { return r.Folder })
}
