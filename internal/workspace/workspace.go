package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"diagsync/internal/diag"
	"diagsync/internal/state"
)

type project struct {
	name      string
	root      string
	documents []string
}

// Workspace is a loaded manifest. Open state may change at runtime; the
// project layout does not.
type Workspace struct {
	name        string
	root        string
	order       []string
	projects    map[string]*project
	analyzers   map[string][]string
	descriptors map[string][]diag.Descriptor

	mu   sync.RWMutex
	open map[state.Artifact]bool
}

func newWorkspace(name, root string) *Workspace {
	return &Workspace{
		name:        name,
		root:        root,
		projects:    make(map[string]*project),
		analyzers:   make(map[string][]string),
		descriptors: make(map[string][]diag.Descriptor),
		open:        make(map[state.Artifact]bool),
	}
}

// Name returns the workspace name.
func (w *Workspace) Name() string { return w.name }

// Root returns the directory holding the manifest.
func (w *Workspace) Root() string { return w.root }

// Projects lists project names in manifest order.
func (w *Workspace) Projects() []string {
	return slices.Clone(w.order)
}

func (w *Workspace) HasProject(name string) bool {
	_, ok := w.projects[name]
	return ok
}

// Documents lists a project's documents in manifest order.
func (w *Workspace) Documents(name string) []string {
	p, ok := w.projects[name]
	if !ok {
		return nil
	}
	return slices.Clone(p.documents)
}

// SetOpen marks a document open or closed, as an editor would.
func (w *Workspace) SetOpen(projectName, document string, open bool) {
	a := state.DocumentArtifact(projectName, CanonicalPath(document))
	w.mu.Lock()
	defer w.mu.Unlock()
	if open {
		w.open[a] = true
	} else {
		delete(w.open, a)
	}
}

func (w *Workspace) IsOpen(a state.Artifact) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.open[a]
}

// DocumentPath returns the file backing a document.
func (w *Workspace) DocumentPath(a state.Artifact) (string, bool) {
	p, ok := w.projects[a.Project]
	if !ok || a.IsProject() {
		return "", false
	}
	return filepath.Join(p.root, filepath.FromSlash(a.Document)), true
}

// DependentSemanticVersion derives a stamp from file modification times: a
// document's own file, or the newest document of a project. Missing files
// are ignored; with nothing on disk the stamp is 1.
func (w *Workspace) DependentSemanticVersion(ctx context.Context, a state.Artifact) (state.Stamp, error) {
	p, ok := w.projects[a.Project]
	if !ok {
		return state.DefaultStamp, fmt.Errorf("workspace: unknown project %q", a.Project)
	}
	docs := p.documents
	if !a.IsProject() {
		docs = []string{a.Document}
	}
	var newest state.Stamp = 1
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return state.DefaultStamp, err
		}
		info, err := os.Stat(filepath.Join(p.root, filepath.FromSlash(d)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return state.DefaultStamp, fmt.Errorf("workspace: stat %s: %w", d, err)
		}
		if s := state.StampFromTime(info.ModTime()); newest.Less(s) {
			newest = s
		}
	}
	return newest, nil
}

// Analyzers lists the analyzers attached to a project in manifest order.
func (w *Workspace) Analyzers(projectName string) []string {
	return slices.Clone(w.analyzers[projectName])
}

// AllAnalyzers lists every declared analyzer, sorted.
func (w *Workspace) AllAnalyzers() []string {
	out := make([]string, 0, len(w.descriptors))
	for name := range w.descriptors {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Descriptors returns the analyzer's descriptors in declared order.
func (w *Workspace) Descriptors(analyzer string) []diag.Descriptor {
	return w.descriptors[analyzer]
}
