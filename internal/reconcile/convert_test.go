package reconcile

import (
	"strconv"
	"testing"

	"diagsync/internal/diag"
	"diagsync/internal/state"
	"diagsync/internal/testkit"
)

func TestConvertDedupAcrossDescriptors(t *testing.T) {
	descs := []diag.Descriptor{
		{ID: "X1", Category: "first", Title: "first X1"},
		{ID: "X1", Category: "second", Title: "second X1"},
	}
	lookup := diag.NewLookup([]diag.External{
		{ID: "X1", Message: "one", Severity: diag.SevWarning},
		{ID: "X1", Message: "two", Severity: diag.SevError},
	})

	out := Convert(lookup, descs, nil)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(out), out)
	}
	for _, r := range out {
		if r.Category != "first" {
			t.Errorf("record %q shaped by %q, want the first descriptor", r.Message, r.Category)
		}
	}
	if err := testkit.CheckDescriptorDedup(out, descs); err != nil {
		t.Fatal(err)
	}
}

func TestConvertDropsRepeatedBuildFindings(t *testing.T) {
	loc := diag.Location{Path: "a.go", StartLine: 4, StartCol: 1}
	lookup := diag.NewLookup([]diag.External{
		{ID: "W1", Document: "a.go", Message: "unused", Severity: diag.SevWarning, Location: loc},
		{ID: "W1", Document: "a.go", Message: "unused", Severity: diag.SevWarning, Location: loc},
		{ID: "W1", Document: "a.go", Message: "unused", Severity: diag.SevWarning, Location: diag.Location{Path: "a.go", StartLine: 9}},
	})
	out := Convert(lookup, []diag.Descriptor{{ID: "W1", DefaultSeverity: diag.SevWarning}}, nil)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(out), out)
	}
	if out[0].Location.StartLine != 4 || out[1].Location.StartLine != 9 {
		t.Errorf("order not kept: %+v", out)
	}
}

func TestConvertEmptyLookupIsEmptyBatch(t *testing.T) {
	out := Convert(diag.NewLookup(nil), []diag.Descriptor{{ID: "A"}}, nil)
	if out == nil || len(out) != 0 {
		t.Fatalf("Convert(empty) = %#v, want non-nil empty", out)
	}
	if out := Convert(nil, nil, nil); out == nil {
		t.Fatalf("Convert(nil) returned nil")
	}
}

func TestConvertKeepsDescriptorOrder(t *testing.T) {
	descs := []diag.Descriptor{{ID: "B"}, {ID: "A"}}
	lookup := diag.NewLookup([]diag.External{
		{ID: "A", Message: "a"},
		{ID: "B", Message: "b1"},
		{ID: "B", Message: "b2"},
	})
	out := Convert(lookup, descs, nil)
	got := make([]string, len(out))
	for i := range out {
		got[i] = out[i].Message
	}
	want := []string{"b1", "b2", "a"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestConvertSeenSetSpansCalls(t *testing.T) {
	lookup := diag.NewLookup([]diag.External{{ID: "X1"}, {ID: "Z9"}})
	seen := NewSeenSet()
	first := Convert(lookup, []diag.Descriptor{{ID: "X1"}}, seen)
	second := Convert(lookup, []diag.Descriptor{{ID: "X1"}, {ID: "Y2"}}, seen)
	if len(first) != 1 || len(second) != 0 {
		t.Fatalf("first=%d second=%d, want 1 and 0", len(first), len(second))
	}
	if !seen.Has("Y2") || seen.Len() != 2 {
		t.Fatalf("seen = %d ids, want X1 and Y2", seen.Len())
	}
	if n := unclaimed(lookup, seen); n != 1 {
		t.Fatalf("unclaimed = %d, want 1 (Z9)", n)
	}
}

func TestSeenPoolReturnsClearedSets(t *testing.T) {
	s := acquireSeen()
	s.Mark("A")
	releaseSeen(s)
	again := acquireSeen()
	defer releaseSeen(again)
	if again.Len() != 0 {
		t.Fatalf("pooled set not cleared: %d ids", again.Len())
	}

	big := NewSeenSet()
	for i := 0; i <= maxPooledSeen; i++ {
		big.Mark("id" + strconv.Itoa(i))
	}
	releaseSeen(big) // dropped, must not panic
	releaseSeen(nil)
}

func TestMergeHiddenRetention(t *testing.T) {
	w1 := diag.Record{ID: "W1", Severity: diag.SevWarning}
	h1 := diag.Record{ID: "H1", Severity: diag.SevHidden}
	h2 := diag.Record{ID: "H2", Severity: diag.SevHidden}
	e1 := diag.Record{ID: "E1", Severity: diag.SevError}

	tests := []struct {
		name string
		next []diag.Record
		prev state.Existing
		want []string
	}{
		{"absent previous", []diag.Record{w1}, state.Absent(), []string{"W1"}},
		{"hidden retained", []diag.Record{w1}, present(e1, h1), []string{"W1", "H1"}},
		{"non-hidden replaced", nil, present(e1), []string{}},
		{"hidden in new not duplicated", []diag.Record{h1}, present(h1, h2), []string{"H1", "H2"}},
		{"hidden id reported at another severity", []diag.Record{{ID: "H1", Severity: diag.SevWarning, Message: "new"}}, present(h1), []string{"H1"}},
		{"other hidden kept beside promoted id", []diag.Record{{ID: "H1", Severity: diag.SevError}}, present(h1, h2), []string{"H1", "H2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.next, tt.prev)
			if err := testkit.CheckMergeRetention(got, tt.next, tt.prev.Items()); err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids(got), tt.want)
			}
			for i := range tt.want {
				if got[i].ID != tt.want[i] {
					t.Fatalf("ids = %v, want %v", ids(got), tt.want)
				}
			}
		})
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	next := []diag.Record{{ID: "W1", Severity: diag.SevWarning}, {ID: "H3", Severity: diag.SevHidden}}
	prev := present(diag.Record{ID: "H1", Severity: diag.SevHidden}, diag.Record{ID: "H3", Severity: diag.SevHidden})

	once := Merge(next, prev)
	twice := Merge(next, state.Present(state.Batch{Items: once}))
	if len(once) != len(twice) {
		t.Fatalf("once=%v twice=%v", ids(once), ids(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID || once[i].Severity != twice[i].Severity {
			t.Fatalf("once=%v twice=%v", ids(once), ids(twice))
		}
	}
}

func TestMergeDoesNotAliasNext(t *testing.T) {
	next := make([]diag.Record, 1, 4)
	next[0] = diag.Record{ID: "W1"}
	out := Merge(next, present(diag.Record{ID: "H1", Severity: diag.SevHidden}))
	out[0].ID = "changed"
	if next[0].ID != "W1" {
		t.Fatalf("Merge result aliases its input")
	}
}

func present(items ...diag.Record) state.Existing {
	return state.Present(state.Batch{Items: items})
}

func ids(items []diag.Record) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].ID
	}
	return out
}
