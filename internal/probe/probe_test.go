package probe

import (
	"os"
	"path/filepath"
	"testing"
)

func sampleFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileInfersColumnTypes(t *testing.T) {
	path := sampleFile(t, "vehicles.csv",
		"PČV,Cena,Datum,Aktivní,Poznámka\n"+
			"1,10.50,2024-01-02,true,first\n"+
			"2,7,2024-02-03,false,\n"+
			"3,0.25,2024-03-04,true,poslední\n")

	res, err := File(path, Options{})
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if res.RowsSampled != 3 {
		t.Fatalf("rows sampled = %d, want 3", res.RowsSampled)
	}

	want := []struct {
		normalized, typ string
		nonEmpty        int
	}{
		{"pcv", "integer", 3},
		{"cena", "real", 3},
		{"datum", "date", 3},
		{"aktivni", "bool", 3},
		{"poznamka", "text", 2},
	}
	if len(res.Columns) != len(want) {
		t.Fatalf("columns = %+v", res.Columns)
	}
	for i, w := range want {
		c := res.Columns[i]
		if c.Normalized != w.normalized || c.Type != w.typ || c.NonEmpty != w.nonEmpty {
			t.Fatalf("column %d = %+v, want %+v", i, c, w)
		}
	}
}

func TestFileSkipsMalformedLines(t *testing.T) {
	path := sampleFile(t, "bad.csv",
		"A,B\n"+
			"1,2\n"+
			"4,5\n"+
			"\"oops,3\n")

	res, err := File(path, Options{})
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if res.RowsSampled != 2 {
		t.Fatalf("rows sampled = %d, want 2 (bad line skipped)", res.RowsSampled)
	}
}

func TestFileRespectsMaxRows(t *testing.T) {
	path := sampleFile(t, "many.csv", "A\n1\n2\n3\n4\n5\n")
	res, err := File(path, Options{MaxRows: 2})
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if res.RowsSampled != 2 {
		t.Fatalf("rows sampled = %d, want 2", res.RowsSampled)
	}
}

func TestSuggest(t *testing.T) {
	path := sampleFile(t, "v.csv",
		"PČV,Poznámka\n"+
			"1,first\n"+
			"2,\n")
	res, err := File(path, Options{})
	if err != nil {
		t.Fatalf("File: %v", err)
	}

	cfg := Suggest("Vozidla ČR", path, res)
	if cfg.Job != "vozidla_cr" {
		t.Fatalf("job = %q", cfg.Job)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Path != path {
		t.Fatalf("sources = %+v", cfg.Sources)
	}
	if !cfg.Sources[0].Options.Bool("normalize_headers", false) {
		t.Fatal("suggested source must normalize headers")
	}
	if cfg.Target.Kind != "stdout" {
		t.Fatalf("target = %+v", cfg.Target)
	}
	// Only the always-populated column becomes required.
	if len(cfg.Stages) != 1 || cfg.Stages[0].Kind != "require" {
		t.Fatalf("stages = %+v", cfg.Stages)
	}
	cols := cfg.Stages[0].Options.StringSlice("columns")
	if len(cols) != 1 || cols[0] != "pcv" {
		t.Fatalf("required columns = %v", cols)
	}
}
