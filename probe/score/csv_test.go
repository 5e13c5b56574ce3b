package score

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return records
}

func TestWriteMetricsCSVs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	if err := WriteMetricsCSVs(dir, caseTrials()); err != nil {
		t.Fatalf("WriteMetricsCSVs failed: %v", err)
	}

	t.Run("overall", func(t *testing.T) {
		records := readCSV(t, filepath.Join(dir, OverallCSV))

		wantHeader := []string{"model", "prompt", "total", "fp", "hallucination_rate"}
		for i, col := range wantHeader {
			if records[0][i] != col {
				t.Errorf("header column %d: expected %q, got %q", i, col, records[0][i])
			}
		}

		// Three prompt modes, one model.
		if len(records) != 4 {
			t.Fatalf("expected header plus 3 rows, got %d records", len(records))
		}
		if records[1][0] != "gpt-4o" || records[1][1] != "baseline" {
			t.Errorf("expected baseline row first, got %v", records[1])
		}
	})

	t.Run("object level", func(t *testing.T) {
		records := readCSV(t, filepath.Join(dir, ObjectCSV))
		if records[0][2] != "object" {
			t.Errorf("expected object column, got %q", records[0][2])
		}
		if len(records) < 2 {
			t.Fatal("expected at least one object row")
		}
	})

	t.Run("folder level", func(t *testing.T) {
		records := readCSV(t, filepath.Join(dir, FolderCSV))
		if records[0][2] != "foldername" {
			t.Errorf("expected foldername column, got %q", records[0][2])
		}
		if len(records) < 2 {
			t.Fatal("expected at least one folder row")
		}
	})
}

func TestWriteOverallCSVRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), OverallCSV)
	rows := []Row{
		{Model: "gpt-4o", Prompt: "baseline", Total: 4, FP: 1},
		{Model: "gpt-4o", Prompt: "misleading1", Total: 2, FP: 2},
	}

	if err := WriteOverallCSV(path, rows); err != nil {
		t.Fatalf("WriteOverallCSV failed: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d records", len(records))
	}
	if records[1][4] != "0.25" {
		t.Errorf("expected rate 0.25, got %q", records[1][4])
	}
	if records[2][4] != "1" {
		t.Errorf("expected rate 1, got %q", records[2][4])
	}
}
