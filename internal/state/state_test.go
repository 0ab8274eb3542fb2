package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"diagsync/internal/diag"
)

func TestStampOrdering(t *testing.T) {
	a := NextStamp()
	b := NextStamp()
	if !a.Less(b) || a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Fatalf("stamps not ordered: %v %v", a, b)
	}
	if a.IsDefault() || b.IsDefault() {
		t.Fatalf("NextStamp must never return DefaultStamp")
	}
	if DefaultStamp.String() != "default" {
		t.Errorf("DefaultStamp.String() = %q", DefaultStamp.String())
	}
	if StampFromTime(time.Unix(0, 0)).IsDefault() {
		t.Errorf("StampFromTime must never return DefaultStamp")
	}
	early, late := StampFromTime(time.Unix(10, 0)), StampFromTime(time.Unix(20, 0))
	if !early.Less(late) {
		t.Errorf("time stamps not ordered: %v %v", early, late)
	}
}

func TestKindParseAndTable(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
		if k.dir() == "unknown" {
			t.Errorf("kind %v has no table entry", k)
		}
	}
	if _, err := ParseKind("workspace"); err == nil {
		t.Errorf("expected error for unknown kind")
	}
	if Kind(42).Valid() {
		t.Errorf("Kind(42) must be invalid")
	}
}

func TestExistingOption(t *testing.T) {
	if Absent().IsPresent() || Absent().Items() != nil {
		t.Fatalf("Absent must be empty")
	}
	e := Present(Batch{TextVersion: 5, SemanticVersion: 6, Items: []diag.Record{{ID: "X"}}})
	b, ok := e.Get()
	if !ok || b.Len() != 1 {
		t.Fatalf("Present lost its batch: %+v", b)
	}
	if !e.UpToDate(5, 6) {
		t.Errorf("UpToDate(5,6) should hold")
	}
	if e.UpToDate(5, 7) || e.UpToDate(4, 6) {
		t.Errorf("UpToDate must compare both stamps")
	}
	built := Present(Batch{TextVersion: DefaultStamp, SemanticVersion: 6})
	if built.UpToDate(DefaultStamp, 6) {
		t.Errorf("batches stamped with DefaultStamp are never up to date")
	}
	if Absent().UpToDate(5, 6) {
		t.Errorf("Absent is never up to date")
	}
}

func TestIndexCellsAreKeyed(t *testing.T) {
	r := NewRegistry(NewMemoryStore())
	art := DocumentArtifact("app", "main.go")
	ix := r.Attach("lint", art)
	if again := r.Attach("lint", art); again != ix {
		t.Fatalf("Attach must return the same index for the same pair")
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d", r.Len())
	}
	cells := ix.Cells()
	if len(cells) != 3 {
		t.Fatalf("Cells() = %d cells", len(cells))
	}
	for i, k := range Kinds() {
		c := cells[i]
		if c.Kind() != k || c.Key().Artifact != art || c.Key().Analyzer != "lint" {
			t.Errorf("cell %d key = %v", i, c.Key())
		}
	}
	sub := ix.Cells(KindProject, KindSyntax)
	if sub[0].Kind() != KindProject || sub[1].Kind() != KindSyntax {
		t.Errorf("Cells(kinds...) order not honoured")
	}
}

func TestCellPersistAndInvalidate(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewMemoryStore())
	cell := r.Attach("lint", ProjectArtifact("app")).Cell(KindProject)

	if e, err := cell.Existing(ctx); err != nil || e.IsPresent() {
		t.Fatalf("fresh cell: %v %v", e, err)
	}
	if err := cell.Persist(ctx, sampleBatch("A")); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if e, _ := cell.Existing(ctx); len(e.Items()) != 1 {
		t.Fatalf("persisted content not visible")
	}
	if err := cell.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if e, _ := cell.Existing(ctx); e.IsPresent() {
		t.Fatalf("invalidated cell must read Absent")
	}
}

type failingStore struct {
	*MemoryStore
	err error
}

func (s failingStore) Save(context.Context, Key, Batch) error { return s.err }

func TestCellWrapsStoreFailures(t *testing.T) {
	boom := errors.New("disk full")
	r := NewRegistry(failingStore{MemoryStore: NewMemoryStore(), err: boom})
	cell := r.Attach("lint", ProjectArtifact("app")).Cell(KindProject)

	err := cell.Persist(context.Background(), Batch{})
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StoreError, got %T %v", err, err)
	}
	if se.Op != "save" || se.Key != cell.Key() || !errors.Is(err, boom) {
		t.Errorf("StoreError = %+v", se)
	}
}

func TestRegistryTeardown(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := NewRegistry(store)

	keep := r.Attach("lint", DocumentArtifact("other", "x.go"))
	drop := r.Attach("lint", DocumentArtifact("app", "main.go"))
	if err := keep.Cell(KindDocument).Persist(ctx, sampleBatch("K")); err != nil {
		t.Fatal(err)
	}
	if err := drop.Cell(KindDocument).Persist(ctx, sampleBatch("D")); err != nil {
		t.Fatal(err)
	}
	// persisted by a previous process, never attached here
	stale := testKey("style", "app", "util.go", KindSyntax)
	if err := store.Save(ctx, stale, sampleBatch("S")); err != nil {
		t.Fatal(err)
	}

	removed, err := r.Teardown(ctx, func(_ string, a Artifact) bool { return a.Project == "app" })
	if err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if len(removed) != 2 || removed[0] != drop.Cell(KindDocument).Key() || removed[1] != stale {
		t.Fatalf("removed = %v", removed)
	}
	if _, ok := r.Lookup("lint", DocumentArtifact("app", "main.go")); ok {
		t.Errorf("torn down index still attached")
	}
	if _, ok := r.Lookup("lint", DocumentArtifact("other", "x.go")); !ok {
		t.Errorf("unrelated index must stay attached")
	}
	if e, _ := keep.Cell(KindDocument).Existing(ctx); !e.IsPresent() {
		t.Errorf("unrelated cell must survive teardown")
	}
}
