package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"diagsync/internal/notify"
	"diagsync/internal/reconcile"
	"diagsync/internal/state"
	"diagsync/internal/workspace"
)

// logScheduler stands in for an editor's analysis queue: it prints every
// re-analysis request.
type logScheduler struct {
	mu       sync.Mutex
	out      io.Writer
	requests int
}

func (s *logScheduler) Reanalyze(a state.Artifact, highPriority bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	prio := "normal"
	if highPriority {
		prio = "high"
	}
	fmt.Fprintf(s.out, "reanalyze %s (%s priority)\n", a, prio)
}

// splitArtifact parses "project" or "project/document".
func splitArtifact(s string) (project, document string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", false
	}
	project, document, _ = strings.Cut(s, "/")
	if project == "" {
		return "", "", false
	}
	return project, workspace.CanonicalPath(document), true
}

// cellFilter selects keys by analyzer, artifact prefix and kind. Zero
// fields match everything.
type cellFilter struct {
	analyzer string
	project  string
	document string
	kind     *state.Kind
}

func (f cellFilter) match(k state.Key) bool {
	if f.analyzer != "" && k.Analyzer != f.analyzer {
		return false
	}
	if f.project != "" && k.Artifact.Project != f.project {
		return false
	}
	if f.document != "" && k.Artifact.Document != f.document {
		return false
	}
	return f.kind == nil || k.Kind == *f.kind
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("analyzer", "", "only cells of this analyzer")
	cmd.Flags().String("artifact", "", "only cells of this project or project/document")
	cmd.Flags().String("kind", "", "only cells of this kind (syntax|document|project)")
}

func filterFromFlags(cmd *cobra.Command) (cellFilter, error) {
	var f cellFilter
	var err error
	if f.analyzer, err = cmd.Flags().GetString("analyzer"); err != nil {
		return f, fmt.Errorf("failed to get analyzer flag: %w", err)
	}
	artifact, err := cmd.Flags().GetString("artifact")
	if err != nil {
		return f, fmt.Errorf("failed to get artifact flag: %w", err)
	}
	if artifact != "" {
		var ok bool
		if f.project, f.document, ok = splitArtifact(artifact); !ok {
			return f, fmt.Errorf("invalid artifact %q", artifact)
		}
	}
	kindStr, err := cmd.Flags().GetString("kind")
	if err != nil {
		return f, fmt.Errorf("failed to get kind flag: %w", err)
	}
	if kindStr != "" {
		k, err := state.ParseKind(kindStr)
		if err != nil {
			return f, err
		}
		f.kind = &k
	}
	return f, nil
}

// printResult writes the one-line outcome of a build event.
func printResult(w io.Writer, name string, res *reconcile.Result) {
	if res.Gated {
		fmt.Fprintf(w, "%s: ignored, build diagnostics are not preferred\n", name)
		return
	}
	fmt.Fprintf(w, "%s: %d persists, %d notifications, %d reanalyze requests, %d skipped, %d excluded\n",
		name, res.Persists, res.Notifications, len(res.Reanalyzed), len(res.Skipped), res.Excluded)
	for _, a := range res.Skipped {
		fmt.Fprintf(w, "  skipped %s: not in workspace\n", a)
	}
}

// printEvent writes one change notification.
func printEvent(w io.Writer, ev notify.Event) {
	fmt.Fprintf(w, "changed %s [%s] %d items\n", ev.Key(), ev.Origin, len(ev.Items))
}
