package state

import "diagsync/internal/diag"

// Batch is the persisted content of one cell.
type Batch struct {
	TextVersion     Stamp
	SemanticVersion Stamp
	Items           []diag.Record
}

// Len returns the number of records in the batch.
func (b Batch) Len() int {
	return len(b.Items)
}

// Existing is the result of reading a cell: either Absent or Present with a
// batch. Callers must branch on Present before using the batch.
type Existing struct {
	batch   Batch
	present bool
}

// Absent is the value for a cell that was never persisted or was invalidated.
func Absent() Existing {
	return Existing{}
}

// Present wraps a persisted batch.
func Present(b Batch) Existing {
	return Existing{batch: b, present: true}
}

// Get returns the batch and whether it exists.
func (e Existing) Get() (Batch, bool) {
	return e.batch, e.present
}

// IsPresent reports whether the cell holds a batch.
func (e Existing) IsPresent() bool {
	return e.present
}

// Items returns the persisted records, nil when absent.
func (e Existing) Items() []diag.Record {
	if !e.present {
		return nil
	}
	return e.batch.Items
}

// UpToDate reports whether the existing batch was computed for exactly the
// given versions. Batches stamped with DefaultStamp never match, which keeps
// build-sourced content out of diff-based short-circuiting.
func (e Existing) UpToDate(text, semantic Stamp) bool {
	if !e.present || e.batch.TextVersion.IsDefault() || text.IsDefault() {
		return false
	}
	return e.batch.TextVersion == text && e.batch.SemanticVersion == semantic
}

func cloneBatch(b Batch) Batch {
	out := Batch{TextVersion: b.TextVersion, SemanticVersion: b.SemanticVersion}
	if b.Items != nil {
		out.Items = make([]diag.Record, len(b.Items))
		for i := range b.Items {
			out.Items[i] = b.Items[i].Clone()
		}
	}
	return out
}
