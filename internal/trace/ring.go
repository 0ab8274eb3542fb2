package trace

import (
	"io"
	"sync"
)

// Ring keeps the most recent events in memory. It backs --trace-mode=ring
// and the trace assertions in tests.
type Ring struct {
	mu    sync.Mutex
	buf   []Event
	start int // index of the oldest event
	n     int
	level Level
}

// NewRing creates a Ring holding up to capacity events (default 4096).
func NewRing(capacity int, level Level) *Ring {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Ring{buf: make([]Event, capacity), level: level}
}

func (t *Ring) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n < len(t.buf) {
		t.buf[(t.start+t.n)%len(t.buf)] = *ev
		t.n++
		return
	}
	t.buf[t.start] = *ev
	t.start = (t.start + 1) % len(t.buf)
}

// Events returns the stored events, oldest first.
func (t *Ring) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, t.n)
	for i := range out {
		out[i] = t.buf[(t.start+i)%len(t.buf)]
	}
	return out
}

// Count returns how many stored events have the given kind and name.
func (t *Ring) Count(kind Kind, name string) int {
	n := 0
	for _, ev := range t.Events() {
		if ev.Kind == kind && ev.Name == name {
			n++
		}
	}
	return n
}

// Dump writes the stored events to w.
func (t *Ring) Dump(w io.Writer, format Format) error {
	for _, ev := range t.Events() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *Ring) Flush() error { return nil }
func (t *Ring) Close() error { return nil }
func (t *Ring) Level() Level { return t.level }
