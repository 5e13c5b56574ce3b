package score

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dshills/visionprobe/probe"
)

// Default CSV file names, matching the study's evaluation outputs.
const (
	OverallCSV = "overall_metrics.csv"
	ObjectCSV  = "object_level_metrics.csv"
	FolderCSV  = "folder_level_metrics.csv"
	CaseACSV   = "typical_caseA_misleading.csv"
	CaseBCSV   = "typical_caseB_mitigation.csv"
)

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", filepath.Base(path), err)
	}

	return f.Close()
}

// WriteOverallCSV writes (model, prompt) rows to path.
//
// Columns: model, prompt, total, fp, hallucination_rate.
func WriteOverallCSV(path string, rows []Row) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Model, r.Prompt,
			strconv.Itoa(r.Total), strconv.Itoa(r.FP), formatRate(r.HallucinationRate()),
		})
	}
	return writeCSV(path, []string{"model", "prompt", "total", "fp", "hallucination_rate"}, records)
}

// WriteObjectCSV writes (model, prompt, object) rows to path.
//
// Columns: model, prompt, object, total, fp, hallucination_rate.
func WriteObjectCSV(path string, rows []Row) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Model, r.Prompt, r.Object,
			strconv.Itoa(r.Total), strconv.Itoa(r.FP), formatRate(r.HallucinationRate()),
		})
	}
	return writeCSV(path, []string{"model", "prompt", "object", "total", "fp", "hallucination_rate"}, records)
}

// WriteFolderCSV writes (model, prompt, folder) rows to path.
//
// Columns: model, prompt, foldername, total, fp, hallucination_rate.
func WriteFolderCSV(path string, rows []Row) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Model, r.Prompt, r.Folder,
			strconv.Itoa(r.Total), strconv.Itoa(r.FP), formatRate(r.HallucinationRate()),
		})
	}
	return writeCSV(path, []string{"model", "prompt", "foldername", "total", "fp", "hallucination_rate"}, records)
}

// WriteMetricsCSVs computes all three groupings and writes them under
// outputDir with the standard file names. The directory is created if
// it doesn't exist.
func WriteMetricsCSVs(outputDir string, trials []probe.Trial) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := WriteOverallCSV(filepath.Join(outputDir, OverallCSV), Overall(trials)); err != nil {
		return err
	}
	if err := WriteObjectCSV(filepath.Join(outputDir, ObjectCSV), ByObject(trials)); err != nil {
		return err
	}
	return WriteFolderCSV(filepath.Join(outputDir, FolderCSV), ByFolder(trials))
}
