package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"diagsync/internal/diag"
)

// Current schema version - increment when diskPayload format changes.
// Payloads written with another schema read back as Absent.
const diskSchemaVersion uint16 = 2

// DiskStore keeps one msgpack file per cell under a root directory.
// Writes go to a temp file that is renamed over the target, so readers
// never observe a partially written batch.
type DiskStore struct {
	mu     sync.RWMutex
	dir    string
	closed bool
}

// diskPayload is the on-disk form of a cell.
type diskPayload struct {
	Schema uint16

	Analyzer string
	Project  string
	Document string
	Kind     uint8

	TextVersion     uint64
	SemanticVersion uint64
	Items           []diag.Record
}

// OpenDiskStore opens a store rooted at dir, creating it if needed.
func OpenDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("state: disk store needs a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("state: create store dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// DefaultDiskDir returns the standard cache location for app, honouring
// XDG_CACHE_HOME.
func DefaultDiskDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app, "cells"), nil
}

// Dir returns the root directory of the store.
func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) pathFor(key Key) string {
	sum := sha256.Sum256([]byte(key.Analyzer + "\x00" + key.Artifact.Project + "\x00" + key.Artifact.Document))
	return filepath.Join(s.dir, key.Kind.dir(), hex.EncodeToString(sum[:])+".mp")
}

func (s *DiskStore) Load(_ context.Context, key Key) (Existing, error) {
	if err := validateKey(key); err != nil {
		return Absent(), err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Absent(), ErrClosed
	}

	var payload diskPayload
	ok, err := readPayload(s.pathFor(key), &payload)
	if err != nil || !ok {
		return Absent(), err
	}
	if payload.Schema != diskSchemaVersion {
		return Absent(), nil
	}
	return Present(Batch{
		TextVersion:     Stamp(payload.TextVersion),
		SemanticVersion: Stamp(payload.SemanticVersion),
		Items:           payload.Items,
	}), nil
}

func (s *DiskStore) Save(_ context.Context, key Key, b Batch) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	p := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmp)
		}
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(&diskPayload{
		Schema:          diskSchemaVersion,
		Analyzer:        key.Analyzer,
		Project:         key.Artifact.Project,
		Document:        key.Artifact.Document,
		Kind:            uint8(key.Kind),
		TextVersion:     uint64(b.TextVersion),
		SemanticVersion: uint64(b.SemanticVersion),
		Items:           b.Items,
	}); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// atomic replace
	if err := os.Rename(tmp, p); err != nil {
		return err
	}
	renamed = true
	return nil
}

func (s *DiskStore) Delete(_ context.Context, key Key) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := os.Remove(s.pathFor(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Keys walks the store and decodes every payload header. Files with another
// schema are skipped.
func (s *DiskStore) Keys(_ context.Context) ([]Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var keys []Key
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".mp") {
			return nil
		}
		var payload diskPayload
		ok, err := readPayload(path, &payload)
		if err != nil {
			return err
		}
		if !ok || payload.Schema != diskSchemaVersion {
			return nil
		}
		keys = append(keys, Key{
			Analyzer: payload.Analyzer,
			Artifact: Artifact{Project: payload.Project, Document: payload.Document},
			Kind:     Kind(payload.Kind),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// DropAll removes every persisted cell. The store stays usable.
func (s *DiskStore) DropAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(s.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.MkdirAll(s.dir, 0o755)
		}
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

func (s *DiskStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func readPayload(path string, out *diskPayload) (ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}
