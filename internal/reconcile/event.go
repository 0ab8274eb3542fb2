package reconcile

import (
	"sort"

	"diagsync/internal/diag"
	"diagsync/internal/state"
)

// BuildEvent is the result of one external build: diagnostics per project.
// Project-level diagnostics carry an empty Document.
type BuildEvent struct {
	Diagnostics map[string][]diag.External
	// Order fixes project iteration. Projects missing from Order are
	// processed after it in sorted order.
	Order []string
}

// Projects returns the event's projects in processing order.
func (e *BuildEvent) Projects() []string {
	out := make([]string, 0, len(e.Diagnostics))
	seen := make(map[string]struct{}, len(e.Diagnostics))
	for _, p := range e.Order {
		if _, ok := e.Diagnostics[p]; !ok {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	rest := make([]string, 0, len(e.Diagnostics)-len(out))
	for p := range e.Diagnostics {
		if _, ok := seen[p]; !ok {
			rest = append(rest, p)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// LiveResult is a batch computed by in-process analysis for one cell.
type LiveResult struct {
	Analyzer        string
	Artifact        state.Artifact
	Kind            state.Kind
	TextVersion     state.Stamp
	SemanticVersion state.Stamp
	Items           []diag.Record
}

// Result summarises what one build event did.
type Result struct {
	// Gated is set when neither build preference holds and nothing ran.
	Gated         bool
	Persists      int
	Notifications int
	Reanalyzed    []state.Artifact
	Skipped       []state.Artifact
	// Excluded counts diagnostics whose id no descriptor declares.
	Excluded int
}

func (r *Result) add(o *Result) {
	r.Persists += o.Persists
	r.Notifications += o.Notifications
	r.Reanalyzed = append(r.Reanalyzed, o.Reanalyzed...)
	r.Skipped = append(r.Skipped, o.Skipped...)
	r.Excluded += o.Excluded
}
