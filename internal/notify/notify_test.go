package notify

import (
	"sync"
	"testing"

	"diagsync/internal/state"
)

func TestChannelDeliversInOrder(t *testing.T) {
	c := NewChannel(4)
	for _, k := range []state.Kind{state.KindProject, state.KindSyntax, state.KindDocument} {
		c.Publish(Event{Kind: k, Analyzer: "lint"})
	}
	c.Close()
	c.Publish(Event{Kind: state.KindProject}) // dropped after close
	c.Close()                                 // idempotent

	var got []state.Kind
	for ev := range c.Events() {
		got = append(got, ev.Kind)
	}
	want := []state.Kind{state.KindProject, state.KindSyntax, state.KindDocument}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestChannelBlocksUntilRead(t *testing.T) {
	c := NewChannel(0)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Publish(Event{Analyzer: "lint"})
	}()
	ev := <-c.Events()
	wg.Wait()
	if ev.Analyzer != "lint" {
		t.Fatalf("event = %+v", ev)
	}
	c.Close()
}

func TestRecorderAndFanout(t *testing.T) {
	var a, b Recorder
	var calls int
	s := Fanout(&a, &b, SinkFunc(func(Event) { calls++ }), Discard)
	s.Publish(Event{Kind: state.KindDocument, Artifact: state.DocumentArtifact("app", "main.go"), Analyzer: "lint"})

	if a.Len() != 1 || b.Len() != 1 || calls != 1 {
		t.Fatalf("fan-out counts: %d %d %d", a.Len(), b.Len(), calls)
	}
	ev := a.Events()[0]
	if ev.Key() != (state.Key{Analyzer: "lint", Artifact: state.DocumentArtifact("app", "main.go"), Kind: state.KindDocument}) {
		t.Errorf("Key() = %v", ev.Key())
	}
	a.Reset()
	if a.Len() != 0 {
		t.Errorf("Reset did not clear")
	}
}

func TestOriginString(t *testing.T) {
	for o, want := range map[Origin]string{OriginBuild: "build", OriginLive: "live", OriginRemoved: "removed", Origin(0): "unknown"} {
		if o.String() != want {
			t.Errorf("Origin(%d).String() = %q, want %q", o, o.String(), want)
		}
	}
}
