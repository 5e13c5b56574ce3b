package probe

import (
	"strings"
	"testing"
)

func TestParseListLiteral(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"single quotes", `['person', 'car']`, []string{"person", "car"}, false},
		{"double quotes", `["dog", "cat"]`, []string{"dog", "cat"}, false},
		{"mixed quotes", `['dog', "cat"]`, []string{"dog", "cat"}, false},
		{"single entry", `['laptop']`, []string{"laptop"}, false},
		{"empty list", `[]`, nil, false},
		{"surrounding space", `  ['bird']  `, []string{"bird"}, false},
		{"no brackets", `'person', 'car'`, nil, true},
		{"unquoted entry", `[person]`, nil, true},
		{"unterminated", `['person]`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseListLiteral(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

const groundTruthCSV = `foldername,filename,no
person,000001.jpg,"['dog', 'laptop']"
car,000002.jpg,"['person']"
dog,000003.jpg,[]
`

func TestReadGroundTruth(t *testing.T) {
	rows, err := ReadGroundTruth(strings.NewReader(groundTruthCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Folder != "person" || rows[0].Filename != "000001.jpg" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if len(rows[0].Absent) != 2 || rows[0].Absent[0] != "dog" || rows[0].Absent[1] != "laptop" {
		t.Errorf("unexpected absent list: %v", rows[0].Absent)
	}
	if len(rows[2].Absent) != 0 {
		t.Errorf("expected empty absent list, got %v", rows[2].Absent)
	}
}

func TestReadGroundTruthColumnOrder(t *testing.T) {
	// Columns are keyed by header name, not position.
	reordered := `no,filename,foldername
"['cup']",000009.jpg,chair
`
	rows, err := ReadGroundTruth(strings.NewReader(reordered))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[0].Folder != "chair" || rows[0].Absent[0] != "cup" {
		t.Errorf("unexpected row: %+v", rows[0])
	}
}

func TestReadGroundTruthMissingColumn(t *testing.T) {
	_, err := ReadGroundTruth(strings.NewReader("foldername,filename\nperson,x.jpg\n"))
	if err == nil {
		t.Fatal("expected error for missing 'no' column")
	}
}

func TestBuildCases(t *testing.T) {
	rows := []GroundTruthRow{
		{Folder: "person", Filename: "a.jpg", Absent: []string{"dog", "cat"}},
		{Folder: "car", Filename: "b.jpg", Absent: []string{"person"}},
		{Folder: "chair", Filename: "c.jpg", Absent: []string{"cup"}},
	}

	cases := BuildCases(rows, "images", []string{"person", "car"})
	if len(cases) != 3 {
		t.Fatalf("expected 3 cases, got %d", len(cases))
	}

	first := cases[0]
	if first.Object != "dog" || first.Folder != "person" {
		t.Errorf("unexpected first case: %+v", first)
	}
	if first.Flag != 0 {
		t.Errorf("absent-object cases must carry flag 0, got %d", first.Flag)
	}
	wantPath := "images/person/a.jpg"
	if first.ImagePath != wantPath {
		t.Errorf("expected image path %q, got %q", wantPath, first.ImagePath)
	}

	// chair was filtered out
	for _, c := range cases {
		if c.Folder == "chair" {
			t.Error("folder filter did not exclude chair")
		}
	}

	// empty filter keeps everything
	all := BuildCases(rows, "images", nil)
	if len(all) != 4 {
		t.Errorf("expected 4 cases with no filter, got %d", len(all))
	}
}

func TestValidateFolders(t *testing.T) {
	if err := ValidateFolders([]string{"person", "laptop"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateFolders([]string{"dogs"}); err == nil {
		t.Error("expected error for unknown folder")
	}
}
