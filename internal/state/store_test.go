package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"diagsync/internal/diag"
)

func testKey(analyzer, project, document string, kind Kind) Key {
	return Key{Analyzer: analyzer, Artifact: Artifact{Project: project, Document: document}, Kind: kind}
}

func sampleBatch(ids ...string) Batch {
	b := Batch{TextVersion: 3, SemanticVersion: 7}
	for _, id := range ids {
		b.Items = append(b.Items, diag.Record{
			ID:         id,
			Message:    "message " + id,
			Severity:   diag.SevWarning,
			Project:    "app",
			Document:   "main.go",
			Tags:       []string{"t"},
			Properties: map[string]string{"k": "v"},
			Location:   diag.Location{Path: "main.go", StartLine: 2, StartCol: 4},
		})
	}
	return b
}

type storeFactory func(t *testing.T) Store

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"disk": func(t *testing.T) Store {
			s, err := OpenDiskStore(filepath.Join(t.TempDir(), "cells"))
			if err != nil {
				t.Fatalf("open disk store: %v", err)
			}
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "cells.db"))
			if err != nil {
				t.Fatalf("open sqlite store: %v", err)
			}
			return s
		},
	}
}

func TestStoreConformance(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			defer s.Close()

			key := testKey("lint", "app", "main.go", KindDocument)
			got, err := s.Load(ctx, key)
			if err != nil {
				t.Fatalf("load before save: %v", err)
			}
			if got.IsPresent() {
				t.Fatalf("expected Absent before first save")
			}

			want := sampleBatch("A", "B")
			if err := s.Save(ctx, key, want); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err = s.Load(ctx, key)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			b, ok := got.Get()
			if !ok {
				t.Fatalf("expected Present after save")
			}
			if b.TextVersion != 3 || b.SemanticVersion != 7 {
				t.Errorf("versions = %v/%v, want v3/v7", b.TextVersion, b.SemanticVersion)
			}
			if len(b.Items) != 2 || b.Items[0].ID != "A" || b.Items[1].ID != "B" {
				t.Fatalf("items = %+v", b.Items)
			}
			if b.Items[0].Properties["k"] != "v" || b.Items[0].Location.StartCol != 4 {
				t.Errorf("record fields lost: %+v", b.Items[0])
			}

			// overwrite replaces fully
			if err := s.Save(ctx, key, Batch{TextVersion: DefaultStamp, SemanticVersion: 9}); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, _ = s.Load(ctx, key)
			if b, _ := got.Get(); len(b.Items) != 0 || b.SemanticVersion != 9 || !b.TextVersion.IsDefault() {
				t.Errorf("overwrite not visible: %+v", b)
			}

			other := testKey("lint", "app", "main.go", KindSyntax)
			if got, _ := s.Load(ctx, other); got.IsPresent() {
				t.Errorf("kinds must be independent cells")
			}
			projectKey := testKey("lint", "app", "", KindProject)
			if err := s.Save(ctx, projectKey, sampleBatch("P")); err != nil {
				t.Fatalf("save project cell: %v", err)
			}

			keys, err := s.Keys(ctx)
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			SortKeys(keys)
			if len(keys) != 2 || keys[0] != projectKey || keys[1] != key {
				t.Fatalf("keys = %v", keys)
			}

			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if got, _ := s.Load(ctx, key); got.IsPresent() {
				t.Errorf("expected Absent after delete")
			}
			if err := s.Delete(ctx, key); err != nil {
				t.Errorf("deleting an absent key must succeed: %v", err)
			}
		})
	}
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()
			bad := []Key{
				testKey("", "app", "", KindProject),
				testKey("lint", "", "", KindProject),
				testKey("lint", "app", "", Kind(9)),
			}
			for _, k := range bad {
				if err := s.Save(context.Background(), k, Batch{}); !errors.Is(err, ErrInvalidKey) {
					t.Errorf("Save(%v) err = %v, want ErrInvalidKey", k, err)
				}
			}
		})
	}
}

func TestStoreConcurrentDistinctKeys(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			defer s.Close()

			docs := []string{"a.go", "b.go", "c.go", "d.go", "e.go", "f.go"}
			var wg sync.WaitGroup
			errs := make(chan error, len(docs))
			for _, doc := range docs {
				wg.Add(1)
				go func(doc string) {
					defer wg.Done()
					errs <- s.Save(ctx, testKey("lint", "app", doc, KindDocument), sampleBatch(doc))
				}(doc)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Fatalf("concurrent save: %v", err)
				}
			}
			for _, doc := range docs {
				got, err := s.Load(ctx, testKey("lint", "app", doc, KindDocument))
				if err != nil {
					t.Fatalf("load %s: %v", doc, err)
				}
				if items := got.Items(); len(items) != 1 || items[0].ID != doc {
					t.Errorf("cell %s = %+v", doc, items)
				}
			}
		})
	}
}

func TestMemoryStoreCopiesBatches(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := testKey("lint", "app", "", KindProject)
	b := sampleBatch("A")
	if err := s.Save(ctx, key, b); err != nil {
		t.Fatalf("save: %v", err)
	}
	b.Items[0] = diag.Record{ID: "mutated"}

	got, _ := s.Load(ctx, key)
	got.Items()[0] = diag.Record{ID: "mutated-again"}

	again, _ := s.Load(ctx, key)
	if again.Items()[0].ID != "A" {
		t.Fatalf("store content aliased by caller: %+v", again.Items())
	}

	nested := sampleBatch("B")
	nested.Items[0].AdditionalLocations = []diag.Location{{Path: "other.go", StartLine: 1}}
	if err := s.Save(ctx, key, nested); err != nil {
		t.Fatalf("save: %v", err)
	}
	nested.Items[0].Tags[0] = "changed"
	nested.Items[0].Properties["k"] = "changed"
	nested.Items[0].AdditionalLocations[0].Path = "changed.go"

	loaded, _ := s.Load(ctx, key)
	loaded.Items()[0].Tags[0] = "changed-after-load"
	r := mustLoad(t, s, key).Items()[0]
	if r.Tags[0] != "t" || r.Properties["k"] != "v" || r.AdditionalLocations[0].Path != "other.go" {
		t.Fatalf("nested record fields aliased: %+v", r)
	}
}

func mustLoad(t *testing.T, s Store, key Key) Existing {
	t.Helper()
	e, err := s.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return e
}

func TestStoresAfterClose(t *testing.T) {
	ctx := context.Background()
	key := testKey("lint", "app", "", KindProject)

	mem := NewMemoryStore()
	_ = mem.Close()
	if _, err := mem.Load(ctx, key); !errors.Is(err, ErrClosed) {
		t.Errorf("memory load after close: %v", err)
	}

	disk, err := OpenDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = disk.Close()
	if err := disk.Save(ctx, key, Batch{}); !errors.Is(err, ErrClosed) {
		t.Errorf("disk save after close: %v", err)
	}
}

func TestDiskStoreSchemaMismatchReadsAbsent(t *testing.T) {
	ctx := context.Background()
	s, err := OpenDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key := testKey("lint", "app", "main.go", KindDocument)
	if err := s.Save(ctx, key, sampleBatch("A")); err != nil {
		t.Fatalf("save: %v", err)
	}

	stale := diskPayload{Schema: diskSchemaVersion + 1, Analyzer: "lint", Project: "app", Document: "main.go", Kind: uint8(KindDocument)}
	data, err := msgpack.Marshal(&stale)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(s.pathFor(key), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := s.Load(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.IsPresent() {
		t.Fatalf("payload with another schema must read as Absent")
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("keys = %v, want none", keys)
	}
}

func TestDiskStoreCorruptFileIsAnError(t *testing.T) {
	ctx := context.Background()
	s, err := OpenDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key := testKey("lint", "app", "", KindProject)
	p := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte{0xc1, 0xff, 0x00}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.Load(ctx, key); err == nil {
		t.Fatalf("expected decode error for corrupt payload")
	}
}

func TestDiskStoreDropAll(t *testing.T) {
	ctx := context.Background()
	s, err := OpenDiskStore(filepath.Join(t.TempDir(), "cells"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key := testKey("lint", "app", "", KindProject)
	if err := s.Save(ctx, key, sampleBatch("A")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if got, _ := s.Load(ctx, key); got.IsPresent() {
		t.Fatalf("expected Absent after DropAll")
	}
	if err := s.Save(ctx, key, sampleBatch("B")); err != nil {
		t.Fatalf("store must stay usable after DropAll: %v", err)
	}
}
