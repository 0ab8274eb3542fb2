package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"diagsync/internal/diag"
	"diagsync/internal/state"
)

func sampleCells() []Cell {
	return []Cell{
		{
			Key: state.Key{Analyzer: "lint", Artifact: state.DocumentArtifact("app", "src/main.go"), Kind: state.KindDocument},
			Batch: state.Batch{SemanticVersion: 42, Items: []diag.Record{
				{ID: "W1", Severity: diag.SevWarning, Message: "unused variable", Location: diag.Location{Path: "src/main.go", StartLine: 3, StartCol: 2}},
				{ID: "HID2", Severity: diag.SevHidden, Message: "kept for fixes", Document: "src/main.go", Suppressed: true, Properties: map[string]string{"b": "2", "a": "1"}},
			}},
		},
		{
			Key: state.Key{Analyzer: "lint", Artifact: state.DocumentArtifact("app", "src/main.go"), Kind: state.KindSyntax},
		},
	}
}

func TestPrettyAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleCells(), PrettyOpts{ShowProps: true}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (empty cell hidden):\n%s", len(lines), buf.String())
	}
	if lines[0] != "lint @ app/src/main.go [document] text=default sem=v42 (2)" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  WARNING  W1    src/main.go:3:2  unused variable") {
		t.Errorf("row 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "HIDDEN   HID2") || !strings.HasSuffix(lines[2], "kept for fixes [suppressed] {a=1, b=2}") {
		t.Errorf("row 2 = %q", lines[2])
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("colour codes emitted with Color=false")
	}
}

func TestPrettyOptions(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleCells(), PrettyOpts{ShowEmpty: true, PathMode: PathModeBasename, Width: 8, Color: true}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "[syntax]") {
		t.Errorf("empty cell not shown:\n%s", out)
	}
	if !strings.Contains(out, "main.go:3:2") || strings.Contains(out, "src/main.go:3:2") {
		t.Errorf("basename mode not applied:\n%s", out)
	}
	if !strings.Contains(out, "…") || strings.Contains(out, "unused variable") {
		t.Errorf("message not truncated:\n%s", out)
	}
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("no colour codes with Color=true")
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleCells(), JSONOpts{Max: 1}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out CellsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(out.Cells) != 2 || out.Count != 1 {
		t.Fatalf("cells=%d count=%d", len(out.Cells), out.Count)
	}
	c := out.Cells[0]
	if c.Kind != "document" || c.TextVersion != "default" || c.SemanticVersion != "v42" || c.Truncated != 1 {
		t.Errorf("cell = %+v", c)
	}
	if c.Items[0].Severity != "WARNING" || c.Items[0].Location.StartLine != 3 {
		t.Errorf("item = %+v", c.Items[0])
	}
	if out.Cells[1].Items == nil {
		t.Errorf("empty cell must encode items as []")
	}
}

func TestDiff(t *testing.T) {
	before := sampleCells()[0].Batch.Items
	after := []diag.Record{before[0], {ID: "E1", Project: "app", Severity: diag.SevError, Message: "broken"}}

	var buf bytes.Buffer
	if err := Diff(&buf, "lint@app/src/main.go#document", before, after, DiffOpts{}); err != nil {
		t.Fatalf("Diff: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"--- lint@app/src/main.go#document (before)", "+++ lint@app/src/main.go#document (after)", "-HIDDEN HID2", "+ERROR E1 app broken"} {
		if !strings.Contains(out, want) {
			t.Errorf("diff missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := Diff(&buf, "same", before, before, DiffOpts{}); err != nil || buf.Len() != 0 {
		t.Fatalf("identical batches produced %q, %v", buf.String(), err)
	}
}

func TestSortCellsAndSummary(t *testing.T) {
	cells := sampleCells()
	cells[0], cells[1] = cells[1], cells[0]
	SortCells(cells)
	if cells[0].Key.Kind != state.KindSyntax {
		t.Fatalf("SortCells order: %v, %v", cells[0].Key, cells[1].Key)
	}
	var buf bytes.Buffer
	if err := Summary(&buf, cells, false); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "2 cells: 0 errors, 1 warnings, 0 info, 1 hidden\n" {
		t.Errorf("Summary = %q", got)
	}
}
