package diagfmt

import (
	"diagsync/internal/diag"
	"diagsync/internal/state"
)

// Cell is one persisted cell as printed by show and reconcile.
type Cell struct {
	Key   state.Key
	Batch state.Batch
}

// SortCells orders cells by key and their records deterministically.
func SortCells(cells []Cell) {
	keys := make([]state.Key, len(cells))
	byKey := make(map[state.Key]Cell, len(cells))
	for i, c := range cells {
		keys[i] = c.Key
		byKey[c.Key] = c
	}
	state.SortKeys(keys)
	for i, k := range keys {
		c := byKey[k]
		items := make([]diag.Record, len(c.Batch.Items))
		copy(items, c.Batch.Items)
		diag.SortRecords(items)
		c.Batch.Items = items
		cells[i] = c
	}
}
