package reconcile

import (
	"sync"

	"diagsync/internal/diag"
)

// SeenSet records the ids already shaped in one artifact pass. It is shared
// by every analyzer of the pass so an id is shaped at most once.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet returns an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{}, 32)}
}

// Has reports whether id was marked.
func (s *SeenSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Mark records id and reports whether it was new.
func (s *SeenSet) Mark(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the number of marked ids.
func (s *SeenSet) Len() int {
	return len(s.ids)
}

// maxPooledSeen bounds the sets kept for reuse; larger ones are dropped.
const maxPooledSeen = 1024

var seenPool = sync.Pool{New: func() any { return NewSeenSet() }}

// acquireSeen takes a cleared set from the pool. Callers release it with
// defer on every path.
func acquireSeen() *SeenSet {
	s, ok := seenPool.Get().(*SeenSet)
	if !ok {
		return NewSeenSet()
	}
	return s
}

func releaseSeen(s *SeenSet) {
	if s == nil || len(s.ids) > maxPooledSeen {
		return
	}
	clear(s.ids)
	seenPool.Put(s)
}

// Convert shapes build diagnostics into records using descriptors in declared
// order. A descriptor whose id is already in seen is skipped, so of several
// descriptors sharing an id only the first shapes its diagnostics.
// Diagnostics whose id no descriptor declares are left out, and a finding the
// build reported twice at the same place yields one record. The result is
// never nil.
func Convert(lookup *diag.Lookup, descriptors []diag.Descriptor, seen *SeenSet) []diag.Record {
	if seen == nil {
		seen = NewSeenSet()
	}
	out := make([]diag.Record, 0, lookup.Len())
	if lookup.Empty() {
		return out
	}
	for i := range descriptors {
		d := &descriptors[i]
		if !seen.Mark(d.ID) {
			continue
		}
		items := lookup.Get(d.ID)
		for j := range items {
			out = append(out, d.Shape(&items[j]))
		}
	}
	return diag.Dedup(out)
}

// unclaimed counts lookup entries whose id was never marked in seen.
func unclaimed(lookup *diag.Lookup, seen *SeenSet) int {
	n := 0
	for _, id := range lookup.Keys() {
		if !seen.Has(id) {
			n += len(lookup.Get(id))
		}
	}
	return n
}
