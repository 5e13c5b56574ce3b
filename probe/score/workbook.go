package score

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/dshills/visionprobe/probe"
)

// Workbook sheet names.
const (
	sheetOverall      = "Overall"
	sheetObjectLevel  = "By Object"
	sheetFolderLevel  = "By Folder"
	sheetObjectMatrix = "Object x Prompt"
	sheetFolderMatrix = "Folder x Prompt"
)

// WriteWorkbook renders all metric groupings into one Excel workbook.
//
// Sheets:
//   - Overall: (model, prompt) rows with totals and rates
//   - By Object / By Folder: the finer groupings
//   - Object x Prompt / Folder x Prompt: pivot matrices of rates with a
//     color scale over the cells, the workbook equivalent of a heatmap
//
// The rate columns and matrix cells carry a three-color conditional
// format (green through yellow to red as the rate rises).
func WriteWorkbook(path string, trials []probe.Trial) error {
	overall := Overall(trials)
	byObject := ByObject(trials)
	byFolder := ByFolder(trials)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	rateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 10}) // percent, two decimals
	if err != nil {
		return fmt.Errorf("failed to create rate style: %w", err)
	}

	if err := writeRowSheet(f, sheetOverall, headerStyle, rateStyle, overall, rowColsOverall); err != nil {
		return err
	}
	if err := writeRowSheet(f, sheetObjectLevel, headerStyle, rateStyle, byObject, rowColsObject); err != nil {
		return err
	}
	if err := writeRowSheet(f, sheetFolderLevel, headerStyle, rateStyle, byFolder, rowColsFolder); err != nil {
		return err
	}

	if err := writeMatrixSheet(f, sheetObjectMatrix, headerStyle, rateStyle, "object", PivotByObject(byObject)); err != nil {
		return err
	}
	if err := writeMatrixSheet(f, sheetFolderMatrix, headerStyle, rateStyle, "foldername", PivotByFolder(byFolder)); err != nil {
		return err
	}

	// The default sheet excelize creates is replaced by Overall.
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

type rowColumns struct {
	header []string
	values func(Row) []interface{}
}

var rowColsOverall = rowColumns{
	header: []string{"model", "prompt", "total", "fp", "hallucination_rate"},
	values: func(r Row) []interface{} {
		return []interface{}{r.Model, r.Prompt, r.Total, r.FP, r.HallucinationRate()}
	},
}

var rowColsObject = rowColumns{
	header: []string{"model", "prompt", "object", "total", "fp", "hallucination_rate"},
	values: func(r Row) []interface{} {
		return []interface{}{r.Model, r.Prompt, r.Object, r.Total, r.FP, r.HallucinationRate()}
	},
}

var rowColsFolder = rowColumns{
	header: []string{"model", "prompt", "foldername", "total", "fp", "hallucination_rate"},
	values: func(r Row) []interface{} {
		return []interface{}{r.Model, r.Prompt, r.Folder, r.Total, r.FP, r.HallucinationRate()}
	},
}

func ensureSheet(f *excelize.File, name string) error {
	// excelize starts with one default sheet; rename it for the first
	// sheet we write, create the rest.
	if name == sheetOverall {
		return f.SetSheetName(f.GetSheetName(0), name)
	}
	_, err := f.NewSheet(name)
	return err
}

func writeRowSheet(f *excelize.File, sheet string, headerStyle, rateStyle int, rows []Row, cols rowColumns) error {
	if err := ensureSheet(f, sheet); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", sheet, err)
	}

	if err := f.SetSheetRow(sheet, "A1", &cols.header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		values := cols.values(r)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	lastHeader, err := excelize.CoordinatesToCellName(len(cols.header), 1)
	if err != nil {
		return fmt.Errorf("failed to compute header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	if len(rows) == 0 {
		return nil
	}

	// Rate column is the last one. Percent format plus color scale.
	rateCol := len(cols.header)
	first, err := excelize.CoordinatesToCellName(rateCol, 2)
	if err != nil {
		return fmt.Errorf("failed to compute rate range: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(rateCol, len(rows)+1)
	if err != nil {
		return fmt.Errorf("failed to compute rate range: %w", err)
	}
	if err := f.SetCellStyle(sheet, first, last, rateStyle); err != nil {
		return fmt.Errorf("failed to style rate column: %w", err)
	}

	return applyColorScale(f, sheet, first+":"+last)
}

func writeMatrixSheet(f *excelize.File, sheet string, headerStyle, rateStyle int, keyLabel string, m Matrix) error {
	if err := ensureSheet(f, sheet); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", sheet, err)
	}

	header := append([]interface{}{keyLabel}, toInterfaces(m.Cols)...)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, key := range m.RowKeys {
		row := make([]interface{}, 0, len(m.Cols)+1)
		row = append(row, key)
		for j := range m.Cols {
			if m.Has[i][j] {
				row = append(row, m.Rates[i][j])
			} else {
				row = append(row, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	lastHeader, err := excelize.CoordinatesToCellName(len(m.Cols)+1, 1)
	if err != nil {
		return fmt.Errorf("failed to compute header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	if len(m.RowKeys) == 0 || len(m.Cols) == 0 {
		return nil
	}

	first, err := excelize.CoordinatesToCellName(2, 2)
	if err != nil {
		return fmt.Errorf("failed to compute matrix range: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(m.Cols)+1, len(m.RowKeys)+1)
	if err != nil {
		return fmt.Errorf("failed to compute matrix range: %w", err)
	}
	if err := f.SetCellStyle(sheet, first, last, rateStyle); err != nil {
		return fmt.Errorf("failed to style matrix: %w", err)
	}

	return applyColorScale(f, sheet, first+":"+last)
}

// applyColorScale adds a green-yellow-red three-color scale over rangeRef.
func applyColorScale(f *excelize.File, sheet, rangeRef string) error {
	err := f.SetConditionalFormat(sheet, rangeRef, []excelize.ConditionalFormatOptions{
		{
			Type:     "3_color_scale",
			Criteria: "=",
			MinType:  "num", MinValue: "0", MinColor: "#63BE7B",
			MidType: "num", MidValue: "0.5", MidColor: "#FFEB84",
			MaxType: "num", MaxValue: "1", MaxColor: "#F8696B",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to apply color scale: %w", err)
	}
	return nil
}

func toInterfaces(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
