package diagfmt

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"diagsync/internal/diag"
)

type palette struct {
	header *color.Color
	dim    *color.Color
	sev    [diag.SevError + 1]*color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		header: color.New(color.Bold),
		dim:    color.New(color.Faint),
		sev: [diag.SevError + 1]*color.Color{
			diag.SevHidden:  color.New(color.FgHiBlack),
			diag.SevInfo:    color.New(color.FgCyan),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevError:   color.New(color.FgRed, color.Bold),
		},
	}
	for _, c := range append([]*color.Color{p.header, p.dim}, p.sev[diag.SevHidden:]...) {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *palette) severity(s diag.Severity) *color.Color {
	if s.Valid() {
		return p.sev[s]
	}
	return p.dim
}

// Pretty prints cells as a header line per cell followed by one aligned row
// per record:
//
//	lint @ app/main.go [document] text=default sem=v42 (2)
//	  WARNING  W1  main.go:3:2  unused variable
func Pretty(w io.Writer, cells []Cell, opts PrettyOpts) error {
	pal := newPalette(opts.Color)
	for _, c := range cells {
		if c.Batch.Len() == 0 && !opts.ShowEmpty {
			continue
		}
		k := c.Key
		header := fmt.Sprintf("%s @ %s [%s] text=%s sem=%s (%d)",
			k.Analyzer, k.Artifact, k.Kind, c.Batch.TextVersion, c.Batch.SemanticVersion, c.Batch.Len())
		if _, err := fmt.Fprintln(w, pal.header.Sprint(header)); err != nil {
			return err
		}

		idWidth, locWidth := 0, 0
		locs := make([]string, len(c.Batch.Items))
		for i := range c.Batch.Items {
			r := &c.Batch.Items[i]
			locs[i] = formatLocation(r, opts.PathMode)
			idWidth = max(idWidth, runewidth.StringWidth(r.ID))
			locWidth = max(locWidth, runewidth.StringWidth(locs[i]))
		}
		for i := range c.Batch.Items {
			r := &c.Batch.Items[i]
			sev := runewidth.FillRight(r.Severity.String(), len("warning"))
			line := "  " + pal.severity(r.Severity).Sprint(sev) +
				"  " + runewidth.FillRight(r.ID, idWidth) +
				"  " + pal.dim.Sprint(runewidth.FillRight(locs[i], locWidth)) +
				"  " + message(r, opts)
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func message(r *diag.Record, opts PrettyOpts) string {
	msg := r.Message
	if r.Suppressed {
		msg += " [suppressed]"
	}
	if opts.ShowProps && len(r.Properties) > 0 {
		keys := make([]string, 0, len(r.Properties))
		for k := range r.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + r.Properties[k]
		}
		msg += " {" + strings.Join(parts, ", ") + "}"
	}
	if opts.Width > 0 {
		msg = runewidth.Truncate(msg, opts.Width, "…")
	}
	return msg
}

func formatLocation(r *diag.Record, mode PathMode) string {
	p := r.Location.Path
	if p == "" {
		p = r.Document
	}
	if p == "" {
		p = r.Project
	}
	if mode == PathModeBasename {
		p = path.Base(p)
	}
	if r.Location.StartLine == 0 {
		return p
	}
	return fmt.Sprintf("%s:%d:%d", p, r.Location.StartLine, r.Location.StartCol)
}

// Summary writes per-severity totals across cells.
func Summary(w io.Writer, cells []Cell, colorize bool) error {
	pal := newPalette(colorize)
	var total diag.Counts
	for _, c := range cells {
		n := diag.Count(c.Batch.Items)
		total.Hidden += n.Hidden
		total.Info += n.Info
		total.Warning += n.Warning
		total.Error += n.Error
	}
	_, err := fmt.Fprintf(w, "%d cells: %s, %s, %s, %s\n", len(cells),
		pal.severity(diag.SevError).Sprintf("%d errors", total.Error),
		pal.severity(diag.SevWarning).Sprintf("%d warnings", total.Warning),
		pal.severity(diag.SevInfo).Sprintf("%d info", total.Info),
		pal.severity(diag.SevHidden).Sprintf("%d hidden", total.Hidden))
	return err
}
