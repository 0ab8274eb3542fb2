package diagfmt

import (
	"fmt"
	"io"

	"github.com/pmezard/go-difflib/difflib"

	"diagsync/internal/diag"
)

// Diff writes a unified diff between two batches of the cell named by name.
// Each record is rendered as one line, so reordering shows up as a change.
// Nothing is written when the batches render identically.
func Diff(w io.Writer, name string, before, after []diag.Record, opts DiffOpts) error {
	ctx := opts.Context
	if ctx <= 0 {
		ctx = 2
	}
	u := difflib.UnifiedDiff{
		A:        renderLines(before),
		B:        renderLines(after),
		FromFile: name + " (before)",
		ToFile:   name + " (after)",
		Context:  ctx,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return fmt.Errorf("diagfmt: diff %s: %w", name, err)
	}
	_, err = io.WriteString(w, s)
	return err
}

func renderLines(items []diag.Record) []string {
	lines := make([]string, len(items))
	for i := range items {
		r := &items[i]
		lines[i] = fmt.Sprintf("%s %s %s %s\n", r.Severity, r.ID, formatLocation(r, PathModeDocument), r.Message)
	}
	return lines
}
