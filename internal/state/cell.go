package state

import "context"

// Cell is the persisted findings of one analyzer for one artifact at one
// kind. A Cell does not cache content; every read goes to the store.
//
// Cells are not locked. Two writers persisting the same cell concurrently is
// a caller error.
type Cell struct {
	key   Key
	store Store
}

// Key returns the address of the cell.
func (c *Cell) Key() Key {
	return c.key
}

// Kind returns the kind of the cell.
func (c *Cell) Kind() Kind {
	return c.key.Kind
}

// Existing reads the current content. Store failures come back as *StoreError.
func (c *Cell) Existing(ctx context.Context) (Existing, error) {
	e, err := c.store.Load(ctx, c.key)
	if err != nil {
		return Absent(), &StoreError{Op: "load", Key: c.key, Err: err}
	}
	return e, nil
}

// Persist atomically replaces the content with b.
func (c *Cell) Persist(ctx context.Context, b Batch) error {
	if err := c.store.Save(ctx, c.key, b); err != nil {
		return &StoreError{Op: "save", Key: c.key, Err: err}
	}
	return nil
}

// Invalidate drops the content; the next read returns Absent.
func (c *Cell) Invalidate(ctx context.Context) error {
	if err := c.store.Delete(ctx, c.key); err != nil {
		return &StoreError{Op: "delete", Key: c.key, Err: err}
	}
	return nil
}
