package buildreport

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"diagsync/internal/diag"
)

const jsonReport = `{
  "workspace": "demo",
  "projects": ["lib", "app"],
  "diagnostics": [
    {"project": "app", "document": "./cmd/main.go", "id": "W1", "message": "unused", "severity": "warning",
     "location": {"path": "cmd/main.go", "start_line": 3, "start_col": 2}},
    {"project": "app", "id": "E1", "message": "broken project", "severity": "error"},
    {"project": "tools", "document": "gen.go", "id": "I1", "message": "note", "severity": "info", "suppressed": true}
  ]
}`

func TestDecodeJSONAndEvent(t *testing.T) {
	rep, err := Decode(strings.NewReader(jsonReport), FormatJSON)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rep.Workspace != "demo" || len(rep.Diagnostics) != 3 {
		t.Fatalf("report = %+v", rep)
	}
	if d := rep.Diagnostics[0]; d.Severity != diag.SevWarning || d.Location.StartLine != 3 {
		t.Errorf("first diagnostic = %+v", d)
	}

	ev := rep.Event()
	wantOrder := []string{"lib", "app", "tools"}
	if len(ev.Order) != len(wantOrder) {
		t.Fatalf("Order = %v, want %v", ev.Order, wantOrder)
	}
	for i := range wantOrder {
		if ev.Order[i] != wantOrder[i] {
			t.Fatalf("Order = %v, want %v", ev.Order, wantOrder)
		}
	}
	app := ev.Diagnostics["app"]
	if len(app) != 2 || app[0].Document != "cmd/main.go" || !app[1].IsProjectLevel() {
		t.Errorf("app diagnostics = %+v", app)
	}
	if _, ok := ev.Diagnostics["lib"]; ok {
		t.Errorf("listed project without diagnostics should not appear in the map")
	}
	if !ev.Diagnostics["tools"][0].Suppressed {
		t.Errorf("suppression flag lost")
	}
}

func TestDecodeRejectsInvalidReports(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", `{"diagnostics": [], "extra": 1}`},
		{"missing project", `{"diagnostics": [{"id": "X", "message": "m", "severity": "error"}]}`},
		{"missing id", `{"diagnostics": [{"project": "p", "message": "m", "severity": "error"}]}`},
		{"bad severity", `{"diagnostics": [{"project": "p", "id": "X", "severity": "fatal"}]}`},
		{"missing severity", `{"diagnostics": [{"project": "P", "document": "a.go", "id": "W1", "message": "m"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.body), FormatJSON); err == nil {
				t.Fatalf("Decode accepted %s", tt.body)
			}
		})
	}
	if _, err := Decode(strings.NewReader("{}"), Format(0)); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("unknown format err = %v", err)
	}
}

func TestEncodeDecodeAcrossFormats(t *testing.T) {
	rep, err := Decode(strings.NewReader(jsonReport), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range []Format{FormatJSON, FormatTOML, FormatMsgpack} {
		t.Run(f.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, rep, f); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			back, err := Decode(&buf, f)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(back.Diagnostics) != 3 || back.Diagnostics[2].Severity != diag.SevInfo || back.Diagnostics[0].Location.StartCol != 2 {
				t.Fatalf("decoded = %+v", back.Diagnostics)
			}
		})
	}
}

func TestDecodeTOML(t *testing.T) {
	body := `
workspace = "demo"

[[diagnostics]]
project = "app"
document = "main.go"
id = "W1"
message = "unused"
severity = "warn"
warning_level = 2
`
	rep, err := Decode(strings.NewReader(body), FormatTOML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d := rep.Diagnostics[0]; d.Severity != diag.SevWarning || d.WarningLevel != 2 {
		t.Fatalf("diagnostic = %+v", d)
	}
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]Format{"a.json": FormatJSON, "b.TOML": FormatTOML, "c.mp": FormatMsgpack, "d.msgpack": FormatMsgpack} {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Errorf("FormatFromPath(%q) = %v, %v; want %v", path, got, err, want)
		}
	}
	if _, err := FormatFromPath("e.txt"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("unknown extension err = %v", err)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.json")
	if err := os.WriteFile(path, []byte(jsonReport), 0o600); err != nil {
		t.Fatal(err)
	}
	rep, err := ReadFile(path)
	if err != nil || len(rep.Diagnostics) != 3 {
		t.Fatalf("ReadFile = %v, %v", rep, err)
	}
}

func TestWatcherCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "build.json")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(jsonReport), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-w.Reports:
		if filepath.Base(got) != "build.json" {
			t.Fatalf("report = %s", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no report notification")
	}
	select {
	case got := <-w.Reports:
		t.Fatalf("extra notification %s", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherStopsWithoutConsumer(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// more reports than the channel buffers, and nobody reading
	for i := 0; i < 40; i++ {
		name := filepath.Join(dir, "build-"+strconv.Itoa(i)+".json")
		if err := os.WriteFile(name, []byte(jsonReport), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(200 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatalf("Stop blocked on an undrained Reports channel")
	}
	w.Stop()

	n := 0
	for range w.Reports {
		n++
	}
	if n > cap(w.reports) {
		t.Errorf("drained %d reports, buffer holds %d", n, cap(w.reports))
	}
}
