package probe

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// KnownFolders is the dataset's category vocabulary. Folder filters are
// validated against it so a typo ("dogs") fails instead of silently
// matching nothing.
var KnownFolders = []string{
	"person", "car", "dog", "cat", "chair",
	"bottle", "cup", "bicycle", "bird", "laptop",
}

// GroundTruthRow is one annotated image from the ground-truth CSV.
type GroundTruthRow struct {
	// Folder is the category directory the image lives in.
	Folder string

	// Filename is the image file name.
	Filename string

	// Absent lists objects verified NOT to appear in the image.
	Absent []string
}

// LoadGroundTruth reads the ground-truth CSV.
//
// The file is header-keyed with columns "foldername", "filename", and
// "no", where "no" holds a bracketed list of absent objects, e.g.
// ['person', 'car']. Both single and double quotes are accepted.
func LoadGroundTruth(path string) ([]GroundTruthRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ground truth: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadGroundTruth(f)
}

// ReadGroundTruth parses ground-truth CSV content from a reader.
func ReadGroundTruth(r io.Reader) ([]GroundTruthRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // validated against the header below

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read ground truth header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"foldername", "filename", "no"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("ground truth is missing required column %q", required)
		}
	}

	var rows []GroundTruthRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ground truth row: %w", err)
		}
		line++

		if len(record) <= cols["no"] {
			return nil, fmt.Errorf("ground truth row %d has %d fields, want at least %d", line, len(record), cols["no"]+1)
		}

		absent, err := parseListLiteral(record[cols["no"]])
		if err != nil {
			return nil, fmt.Errorf("ground truth row %d (%s): %w", line, record[cols["filename"]], err)
		}

		rows = append(rows, GroundTruthRow{
			Folder:   strings.TrimSpace(record[cols["foldername"]]),
			Filename: strings.TrimSpace(record[cols["filename"]]),
			Absent:   absent,
		})
	}

	return rows, nil
}

// parseListLiteral parses a Python-style list literal of strings:
// ['person', 'car'] or ["person", "car"]. An empty list is valid.
func parseListLiteral(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("malformed list literal %q", s)
	}

	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, nil
	}

	var items []string
	for i := 0; i < len(inner); {
		// Skip separators and whitespace between entries.
		switch inner[i] {
		case ',', ' ', '\t':
			i++
			continue
		}

		quote := inner[i]
		if quote != '\'' && quote != '"' {
			return nil, fmt.Errorf("malformed list literal %q: expected quoted entry at offset %d", s, i)
		}

		end := strings.IndexByte(inner[i+1:], quote)
		if end < 0 {
			return nil, fmt.Errorf("malformed list literal %q: unterminated entry", s)
		}

		items = append(items, inner[i+1:i+1+end])
		i += end + 2
	}

	return items, nil
}

// BuildCases expands ground-truth rows into dispatchable cases, one per
// (image, absent object) pair.
//
// Only rows whose folder appears in folders are kept; an empty folder
// list keeps everything. Image paths resolve as imageRoot/folder/filename.
func BuildCases(rows []GroundTruthRow, imageRoot string, folders []string) []Case {
	keep := map[string]bool{}
	for _, f := range folders {
		keep[f] = true
	}

	var cases []Case
	for _, row := range rows {
		if len(folders) > 0 && !keep[row.Folder] {
			continue
		}
		for _, obj := range row.Absent {
			cases = append(cases, Case{
				Folder:    row.Folder,
				Filename:  row.Filename,
				Object:    obj,
				Flag:      0,
				ImagePath: filepath.Join(imageRoot, row.Folder, row.Filename),
			})
		}
	}

	return cases
}

// ValidateFolders checks folder names against the dataset vocabulary.
func ValidateFolders(folders []string) error {
	known := map[string]bool{}
	for _, f := range KnownFolders {
		known[f] = true
	}
	for _, f := range folders {
		if !known[f] {
			return fmt.Errorf("unknown dataset folder %q (known: %s)", f, strings.Join(KnownFolders, ", "))
		}
	}
	return nil
}
