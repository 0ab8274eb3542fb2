package diag

import (
	"fmt"
	"maps"
	"slices"
)

// Location is a source range in 1-based line/column coordinates.
// A zero EndLine/EndCol means the range collapses to its start.
type Location struct {
	Path      string `json:"path,omitempty" toml:"path" msgpack:"path,omitempty"`
	StartLine int    `json:"start_line,omitempty" toml:"start_line" msgpack:"sl,omitempty"`
	StartCol  int    `json:"start_col,omitempty" toml:"start_col" msgpack:"sc,omitempty"`
	EndLine   int    `json:"end_line,omitempty" toml:"end_line" msgpack:"el,omitempty"`
	EndCol    int    `json:"end_col,omitempty" toml:"end_col" msgpack:"ec,omitempty"`
}

// IsZero reports whether the location carries no position at all.
func (l Location) IsZero() bool {
	return l == Location{}
}

func (l Location) String() string {
	if l.Path == "" && l.StartLine == 0 {
		return "<no location>"
	}
	return fmt.Sprintf("%s:%d:%d", l.Path, l.StartLine, l.StartCol)
}

// Record is one persisted finding. Records are values: producers build them
// once and nobody mutates them afterwards.
type Record struct {
	ID          string `msgpack:"id"`
	Category    string `msgpack:"cat,omitempty"`
	Message     string `msgpack:"msg"`
	Title       string `msgpack:"title,omitempty"`
	Description string `msgpack:"desc,omitempty"`
	HelpLink    string `msgpack:"help,omitempty"`

	// Severity is the effective severity; DefaultSeverity is what the
	// descriptor declares.
	Severity        Severity `msgpack:"sev"`
	DefaultSeverity Severity `msgpack:"dsev"`
	Enabled         bool     `msgpack:"enabled"`
	WarningLevel    int      `msgpack:"wl,omitempty"`

	Tags       []string          `msgpack:"tags,omitempty"`
	Properties map[string]string `msgpack:"props,omitempty"`

	// Project is always set; Document is empty for project-level findings.
	Project  string `msgpack:"project"`
	Document string `msgpack:"doc,omitempty"`

	Location            Location   `msgpack:"loc"`
	AdditionalLocations []Location `msgpack:"more,omitempty"`

	Suppressed bool `msgpack:"suppressed,omitempty"`
}

// Clone returns a copy of r that shares no slice or map with it.
func (r *Record) Clone() Record {
	out := *r
	out.Tags = slices.Clone(r.Tags)
	out.Properties = maps.Clone(r.Properties)
	out.AdditionalLocations = slices.Clone(r.AdditionalLocations)
	return out
}

// IsHidden reports whether the record is in the hidden tier.
func (r *Record) IsHidden() bool {
	return r.Severity == SevHidden
}

// External is a diagnostic as reported by a build. It only carries what a
// build knows; descriptor metadata is filled in during conversion.
type External struct {
	Project      string            `json:"project,omitempty" toml:"project"`
	Document     string            `json:"document,omitempty" toml:"document"`
	ID           string            `json:"id" toml:"id"`
	Message      string            `json:"message" toml:"message"`
	Severity     Severity          `json:"severity" toml:"severity"`
	WarningLevel int               `json:"warning_level,omitempty" toml:"warning_level"`
	Properties   map[string]string `json:"properties,omitempty" toml:"properties"`
	Location     Location          `json:"location" toml:"location"`
	Additional   []Location        `json:"additional_locations,omitempty" toml:"additional_locations"`
	Suppressed   bool              `json:"suppressed,omitempty" toml:"suppressed"`
}

// IsProjectLevel reports whether the diagnostic has no owning document.
func (e *External) IsProjectLevel() bool {
	return e.Document == ""
}
