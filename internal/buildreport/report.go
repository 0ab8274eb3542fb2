// Package buildreport reads the diagnostics an external build writes and
// turns them into build events.
package buildreport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/vmihailenco/msgpack/v5"

	"diagsync/internal/diag"
	"diagsync/internal/reconcile"
	"diagsync/internal/workspace"
)

// ErrUnknownFormat reports a report file with an unsupported extension.
var ErrUnknownFormat = errors.New("buildreport: unknown report format")

// Format is the encoding of a report file.
type Format uint8

const (
	FormatJSON Format = iota + 1
	FormatTOML
	FormatMsgpack
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatTOML:
		return "toml"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".msgpack", ".mp":
		return FormatMsgpack, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Report is one build's output.
type Report struct {
	Workspace string `json:"workspace,omitempty" toml:"workspace"`
	// Projects fixes the order projects are reconciled in.
	Projects    []string        `json:"projects,omitempty" toml:"projects"`
	Diagnostics []diag.External `json:"diagnostics" toml:"diagnostics"`
}

// Decode reads a report in the given format and validates it.
func Decode(r io.Reader, format Format) (*Report, error) {
	var rep Report
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rep); err != nil {
			return nil, fmt.Errorf("buildreport: decode json: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rep); err != nil {
			return nil, fmt.Errorf("buildreport: decode toml: %w", err)
		}
	case FormatMsgpack:
		dec := msgpack.NewDecoder(r)
		dec.SetCustomStructTag("json")
		if err := dec.Decode(&rep); err != nil {
			return nil, fmt.Errorf("buildreport: decode msgpack: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
	if err := rep.Validate(); err != nil {
		return nil, err
	}
	return &rep, nil
}

// ReadFile decodes the report at path, choosing the format by extension.
func ReadFile(path string) (*Report, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("buildreport: %w", err)
	}
	rep, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rep, nil
}

// Encode writes rep in the given format.
func Encode(w io.Writer, rep *Report, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatTOML:
		return toml.NewEncoder(w).Encode(rep)
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		return enc.Encode(rep)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
}

// Validate checks that every diagnostic names a project, an id and a
// severity.
func (r *Report) Validate() error {
	for i := range r.Diagnostics {
		d := &r.Diagnostics[i]
		if strings.TrimSpace(d.Project) == "" {
			return fmt.Errorf("buildreport: diagnostic #%d (%s): missing project", i+1, d.ID)
		}
		if strings.TrimSpace(d.ID) == "" {
			return fmt.Errorf("buildreport: diagnostic #%d: missing id", i+1)
		}
		if !d.Severity.Valid() {
			return fmt.Errorf("buildreport: diagnostic #%d (%s): missing severity", i+1, d.ID)
		}
	}
	return nil
}

// Event groups the report by project. Document paths are made canonical so
// they match workspace document ids. Projects not listed in Projects follow
// in order of first appearance.
func (r *Report) Event() *reconcile.BuildEvent {
	ev := &reconcile.BuildEvent{Diagnostics: make(map[string][]diag.External)}
	listed := make(map[string]bool, len(r.Projects))
	for _, p := range r.Projects {
		if !listed[p] {
			listed[p] = true
			ev.Order = append(ev.Order, p)
		}
	}
	for _, d := range r.Diagnostics {
		d.Document = workspace.CanonicalPath(d.Document)
		if _, ok := ev.Diagnostics[d.Project]; !ok && !listed[d.Project] {
			ev.Order = append(ev.Order, d.Project)
		}
		ev.Diagnostics[d.Project] = append(ev.Diagnostics[d.Project], d)
	}
	return ev
}
