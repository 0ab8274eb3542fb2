package state

import (
	"context"
	"errors"
	"fmt"
)

// Store is the key/value contract behind cells.
//
// Load returns Absent for keys that were never saved or were deleted. Save
// atomically replaces the value for a key: a concurrent Load observes either
// the old or the new batch, never a mix. Implementations must be safe for
// concurrent use on different keys; callers serialise writes to one key.
type Store interface {
	Load(ctx context.Context, key Key) (Existing, error)
	Save(ctx context.Context, key Key, b Batch) error
	Delete(ctx context.Context, key Key) error
	// Keys lists every key that currently holds a batch, in no particular order.
	Keys(ctx context.Context) ([]Key, error)
	Close() error
}

var (
	// ErrClosed is returned by stores used after Close.
	ErrClosed = errors.New("state: store closed")
	// ErrInvalidKey is returned when a key has no analyzer, no project or an unknown kind.
	ErrInvalidKey = errors.New("state: invalid key")
)

// StoreError reports a failed store operation on one cell.
type StoreError struct {
	Op  string // "load", "save", "delete" or "keys"
	Key Key
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == (Key{}) {
		return fmt.Sprintf("state: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("state: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func validateKey(k Key) error {
	if k.Analyzer == "" || k.Artifact.Project == "" || !k.Kind.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidKey, k)
	}
	return nil
}
