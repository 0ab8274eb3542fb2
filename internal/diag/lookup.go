package diag

import "sort"

// Lookup groups a batch of build diagnostics by stable id.
// Items keep their batch order within one id.
type Lookup struct {
	byID  map[string][]External
	total int
}

// NewLookup indexes items by ID. A nil or empty slice yields an empty lookup.
func NewLookup(items []External) *Lookup {
	l := &Lookup{byID: make(map[string][]External, len(items))}
	for i := range items {
		l.byID[items[i].ID] = append(l.byID[items[i].ID], items[i])
	}
	l.total = len(items)
	return l
}

// Get returns the diagnostics reported under id; nil when there are none.
func (l *Lookup) Get(id string) []External {
	if l == nil {
		return nil
	}
	return l.byID[id]
}

// Len returns the number of diagnostics in the lookup.
func (l *Lookup) Len() int {
	if l == nil {
		return 0
	}
	return l.total
}

// IDs returns the number of distinct ids.
func (l *Lookup) IDs() int {
	if l == nil {
		return 0
	}
	return len(l.byID)
}

// Empty reports whether the lookup holds no diagnostics.
func (l *Lookup) Empty() bool {
	return l.Len() == 0
}

// Keys returns the distinct ids in sorted order.
func (l *Lookup) Keys() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.byID))
	for id := range l.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
