package diagfmt

import (
	"encoding/json"
	"io"

	"diagsync/internal/diag"
)

// LocationJSON is a source range in JSON output.
type LocationJSON struct {
	Path      string `json:"path,omitempty"`
	StartLine int    `json:"start_line,omitempty"`
	StartCol  int    `json:"start_col,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
	EndCol    int    `json:"end_col,omitempty"`
}

// RecordJSON is one record in JSON output.
type RecordJSON struct {
	ID              string            `json:"id"`
	Severity        string            `json:"severity"`
	DefaultSeverity string            `json:"default_severity"`
	Category        string            `json:"category,omitempty"`
	Message         string            `json:"message"`
	Title           string            `json:"title,omitempty"`
	Description     string            `json:"description,omitempty"`
	HelpLink        string            `json:"help_link,omitempty"`
	Enabled         bool              `json:"enabled"`
	WarningLevel    int               `json:"warning_level,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	Properties      map[string]string `json:"properties,omitempty"`
	Location        LocationJSON      `json:"location"`
	Additional      int               `json:"additional_locations,omitempty"`
	Suppressed      bool              `json:"suppressed,omitempty"`
}

// CellJSON is one cell in JSON output.
type CellJSON struct {
	Analyzer        string       `json:"analyzer"`
	Project         string       `json:"project"`
	Document        string       `json:"document,omitempty"`
	Kind            string       `json:"kind"`
	TextVersion     string       `json:"text_version"`
	SemanticVersion string       `json:"semantic_version"`
	Items           []RecordJSON `json:"items"`
	Truncated       int          `json:"truncated,omitempty"`
}

// CellsOutput is the root of JSON output.
type CellsOutput struct {
	Cells []CellJSON `json:"cells"`
	Count int        `json:"count"`
}

// BuildCellsOutput prepares the JSON structure without serialising it.
func BuildCellsOutput(cells []Cell, opts JSONOpts) CellsOutput {
	out := CellsOutput{Cells: make([]CellJSON, 0, len(cells))}
	for _, c := range cells {
		items := c.Batch.Items
		truncated := 0
		if opts.Max > 0 && len(items) > opts.Max {
			truncated = len(items) - opts.Max
			items = items[:opts.Max]
		}
		cj := CellJSON{
			Analyzer:        c.Key.Analyzer,
			Project:         c.Key.Artifact.Project,
			Document:        c.Key.Artifact.Document,
			Kind:            c.Key.Kind.String(),
			TextVersion:     c.Batch.TextVersion.String(),
			SemanticVersion: c.Batch.SemanticVersion.String(),
			Items:           make([]RecordJSON, 0, len(items)),
			Truncated:       truncated,
		}
		for i := range items {
			cj.Items = append(cj.Items, recordJSON(&items[i]))
		}
		out.Count += len(cj.Items)
		out.Cells = append(out.Cells, cj)
	}
	return out
}

func recordJSON(r *diag.Record) RecordJSON {
	return RecordJSON{
		ID:              r.ID,
		Severity:        r.Severity.String(),
		DefaultSeverity: r.DefaultSeverity.String(),
		Category:        r.Category,
		Message:         r.Message,
		Title:           r.Title,
		Description:     r.Description,
		HelpLink:        r.HelpLink,
		Enabled:         r.Enabled,
		WarningLevel:    r.WarningLevel,
		Tags:            r.Tags,
		Properties:      r.Properties,
		Location: LocationJSON{
			Path:      r.Location.Path,
			StartLine: r.Location.StartLine,
			StartCol:  r.Location.StartCol,
			EndLine:   r.Location.EndLine,
			EndCol:    r.Location.EndCol,
		},
		Additional: len(r.AdditionalLocations),
		Suppressed: r.Suppressed,
	}
}

// JSON writes cells as a single JSON document.
func JSON(w io.Writer, cells []Cell, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	if opts.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(BuildCellsOutput(cells, opts))
}
