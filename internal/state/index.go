package state

import (
	"context"
	"sort"
	"sync"
)

// Index owns the three cells of one analyzer applied to one artifact.
type Index struct {
	analyzer string
	artifact Artifact
	cells    [numKinds]Cell
}

func newIndex(store Store, analyzer string, artifact Artifact) *Index {
	ix := &Index{analyzer: analyzer, artifact: artifact}
	for _, k := range Kinds() {
		ix.cells[k] = Cell{
			key:   Key{Analyzer: analyzer, Artifact: artifact, Kind: k},
			store: store,
		}
	}
	return ix
}

// Analyzer returns the analyzer the index belongs to.
func (ix *Index) Analyzer() string { return ix.analyzer }

// Artifact returns the artifact the index belongs to.
func (ix *Index) Artifact() Artifact { return ix.artifact }

// Cell returns the cell for kind. It panics on an undeclared kind.
func (ix *Index) Cell(k Kind) *Cell {
	if !k.Valid() {
		panic("state: cell requested for invalid kind " + k.String())
	}
	return &ix.cells[k]
}

// Cells returns the cells of the given kinds, or all cells in Kinds order
// when none are given.
func (ix *Index) Cells(kinds ...Kind) []*Cell {
	if len(kinds) == 0 {
		kinds = Kinds()
	}
	out := make([]*Cell, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, ix.Cell(k))
	}
	return out
}

type indexKey struct {
	analyzer string
	artifact Artifact
}

// Registry hands out indices over one store. An index is created when an
// analyzer first attaches to an artifact and dropped by Teardown.
type Registry struct {
	mu      sync.Mutex
	store   Store
	indices map[indexKey]*Index
}

// NewRegistry creates a Registry backed by store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store, indices: make(map[indexKey]*Index)}
}

// Store returns the backing store.
func (r *Registry) Store() Store {
	return r.store
}

// Attach returns the index for (analyzer, artifact), creating it on first use.
func (r *Registry) Attach(analyzer string, artifact Artifact) *Index {
	k := indexKey{analyzer: analyzer, artifact: artifact}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ix, ok := r.indices[k]; ok {
		return ix
	}
	ix := newIndex(r.store, analyzer, artifact)
	r.indices[k] = ix
	return ix
}

// Lookup returns an already attached index.
func (r *Registry) Lookup(analyzer string, artifact Artifact) (*Index, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ix, ok := r.indices[indexKey{analyzer: analyzer, artifact: artifact}]
	return ix, ok
}

// Len returns the number of attached indices.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.indices)
}

// Teardown detaches every index whose (analyzer, artifact) matches and
// deletes the matching persisted cells, including cells persisted by an
// earlier process that never attached here. It returns the keys that held a
// batch, sorted.
func (r *Registry) Teardown(ctx context.Context, match func(analyzer string, artifact Artifact) bool) ([]Key, error) {
	r.mu.Lock()
	for k := range r.indices {
		if match(k.analyzer, k.artifact) {
			delete(r.indices, k)
		}
	}
	r.mu.Unlock()

	keys, err := r.store.Keys(ctx)
	if err != nil {
		return nil, &StoreError{Op: "keys", Err: err}
	}
	var removed []Key
	for _, k := range keys {
		if !match(k.Analyzer, k.Artifact) {
			continue
		}
		if err := r.store.Delete(ctx, k); err != nil {
			return removed, &StoreError{Op: "delete", Key: k, Err: err}
		}
		removed = append(removed, k)
	}
	SortKeys(removed)
	return removed, nil
}

// SortKeys orders keys by analyzer, project, document and kind.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Analyzer != b.Analyzer {
			return a.Analyzer < b.Analyzer
		}
		if a.Artifact.Project != b.Artifact.Project {
			return a.Artifact.Project < b.Artifact.Project
		}
		if a.Artifact.Document != b.Artifact.Document {
			return a.Artifact.Document < b.Artifact.Document
		}
		return a.Kind < b.Kind
	})
}
