package reconcile

import (
	"diagsync/internal/diag"
	"diagsync/internal/state"
)

// Merge returns next followed by the Hidden records of prev. Build snapshots
// do not carry hidden findings reliably, so the last live pass's hidden
// records survive until a live pass recomputes them; every other severity is
// replaced outright. A hidden record of prev whose id is reported in next, at
// any severity, is not appended again.
func Merge(next []diag.Record, prev state.Existing) []diag.Record {
	old := prev.Items()
	out := make([]diag.Record, 0, len(next)+len(old))
	out = append(out, next...)
	if len(old) == 0 {
		return out
	}

	reported := make(map[string]struct{}, len(next))
	for i := range next {
		reported[next[i].ID] = struct{}{}
	}
	for i := range old {
		if !old[i].IsHidden() {
			continue
		}
		if _, dup := reported[old[i].ID]; dup {
			continue
		}
		out = append(out, old[i])
	}
	return out
}
