// Package workspace loads a diagsync.toml manifest and serves it as the
// host workspace and analyzer registry of the reconciliation controller.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"

	"diagsync/internal/diag"
)

// ManifestName is the file Find looks for.
const ManifestName = "diagsync.toml"

type manifestFile struct {
	Name      string         `toml:"name"`
	Open      []string       `toml:"open"`
	Projects  []projectFile  `toml:"project"`
	Analyzers []analyzerFile `toml:"analyzer"`
}

type projectFile struct {
	Name      string   `toml:"name"`
	Root      string   `toml:"root"`
	Documents []string `toml:"documents"`
	// Include filters discovered documents by base name when Documents
	// is not set.
	Include []string `toml:"include"`
}

type analyzerFile struct {
	Name        string           `toml:"name"`
	Projects    []string         `toml:"projects"`
	Descriptors []descriptorFile `toml:"descriptor"`
}

type descriptorFile struct {
	ID          string        `toml:"id"`
	Category    string        `toml:"category"`
	Severity    diag.Severity `toml:"severity"`
	Enabled     *bool         `toml:"enabled"`
	Tags        []string      `toml:"tags"`
	Title       string        `toml:"title"`
	Description string        `toml:"description"`
	Help        string        `toml:"help"`
}

// Find walks up from startDir looking for diagsync.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load parses and validates the manifest at path.
func Load(manifestPath string) (*Workspace, error) {
	var mf manifestFile
	meta, err := toml.DecodeFile(manifestPath, &mf)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", manifestPath, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", manifestPath, undecoded[0])
	}
	if !meta.IsDefined("project") || len(mf.Projects) == 0 {
		return nil, fmt.Errorf("%s: missing [[project]]", manifestPath)
	}

	root := filepath.Dir(manifestPath)
	ws := newWorkspace(mf.Name, root)
	if ws.name == "" {
		ws.name = filepath.Base(root)
	}
	for i, p := range mf.Projects {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: [[project]] #%d: missing name", manifestPath, i+1)
		}
		if _, dup := ws.projects[name]; dup {
			return nil, fmt.Errorf("%s: duplicate project %q", manifestPath, name)
		}
		proj := &project{name: name, root: filepath.Join(root, filepath.FromSlash(p.Root))}
		docs := p.Documents
		if len(docs) == 0 && len(p.Include) > 0 {
			found, err := discover(proj.root, p.Include)
			if err != nil {
				return nil, fmt.Errorf("%s: project %q: discover documents: %w", manifestPath, name, err)
			}
			docs = found
		}
		for _, d := range docs {
			doc := CanonicalPath(d)
			if doc == "" || doc == "." {
				return nil, fmt.Errorf("%s: project %q: empty document path", manifestPath, name)
			}
			if slices.Contains(proj.documents, doc) {
				return nil, fmt.Errorf("%s: project %q: duplicate document %q", manifestPath, name, doc)
			}
			proj.documents = append(proj.documents, doc)
		}
		ws.projects[name] = proj
		ws.order = append(ws.order, name)
	}

	for i, a := range mf.Analyzers {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: [[analyzer]] #%d: missing name", manifestPath, i+1)
		}
		if _, dup := ws.descriptors[name]; dup {
			return nil, fmt.Errorf("%s: duplicate analyzer %q", manifestPath, name)
		}
		targets := a.Projects
		if len(targets) == 0 {
			targets = ws.order
		}
		for _, p := range targets {
			if _, ok := ws.projects[p]; !ok {
				return nil, fmt.Errorf("%s: analyzer %q: unknown project %q", manifestPath, name, p)
			}
			ws.analyzers[p] = append(ws.analyzers[p], name)
		}
		descs := make([]diag.Descriptor, 0, len(a.Descriptors))
		for j, d := range a.Descriptors {
			if strings.TrimSpace(d.ID) == "" {
				return nil, fmt.Errorf("%s: analyzer %q: descriptor #%d: missing id", manifestPath, name, j+1)
			}
			if !d.Severity.Valid() {
				return nil, fmt.Errorf("%s: analyzer %q: descriptor %s: missing severity", manifestPath, name, d.ID)
			}
			enabled := true
			if d.Enabled != nil {
				enabled = *d.Enabled
			}
			descs = append(descs, diag.Descriptor{
				ID:               d.ID,
				Category:         d.Category,
				Title:            d.Title,
				Description:      d.Description,
				HelpLink:         d.Help,
				DefaultSeverity:  d.Severity,
				EnabledByDefault: enabled,
				CustomTags:       d.Tags,
			})
		}
		ws.descriptors[name] = descs
	}

	for _, o := range mf.Open {
		p, d, ok := strings.Cut(o, "/")
		if !ok {
			return nil, fmt.Errorf("%s: open entry %q must be project/document", manifestPath, o)
		}
		ws.SetOpen(p, d, true)
	}
	return ws, nil
}

// CanonicalPath turns a document path into the form used as its id: slash
// separated, cleaned and NFC-normalised so visually identical names compare
// equal.
func CanonicalPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = path.Clean(strings.ReplaceAll(p, `\`, "/"))
	p = strings.TrimPrefix(p, "./")
	return norm.NFC.String(p)
}
