// Package notify carries "diagnostics changed" events out of the
// reconciliation core. Delivery and ordering across artifacts are the
// consumer's business; a single cell's events are published in persist order.
package notify

import (
	"sync"

	"diagsync/internal/diag"
	"diagsync/internal/state"
)

// Origin says why a cell changed.
type Origin uint8

const (
	OriginBuild   Origin = iota + 1 // reconciled from a build event
	OriginLive                      // persisted from a live analysis result
	OriginRemoved                   // cell torn down with its artifact or analyzer
)

func (o Origin) String() string {
	switch o {
	case OriginBuild:
		return "build"
	case OriginLive:
		return "live"
	case OriginRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Scope describes what owns the changed artifact.
type Scope struct {
	Workspace string
	Project   string
}

// Event reports the new content of one cell.
type Event struct {
	Kind     state.Kind
	Artifact state.Artifact
	Analyzer string
	Scope    Scope
	Origin   Origin
	Items    []diag.Record
}

// Key returns the address of the cell the event is about.
func (e *Event) Key() state.Key {
	return state.Key{Analyzer: e.Analyzer, Artifact: e.Artifact, Kind: e.Kind}
}

// Sink receives events. Publish must not call back into the publisher.
type Sink interface {
	Publish(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event)

func (f SinkFunc) Publish(ev Event) { f(ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Fanout publishes to each sink in order.
func Fanout(sinks ...Sink) Sink {
	return SinkFunc(func(ev Event) {
		for _, s := range sinks {
			s.Publish(ev)
		}
	})
}

// Channel is a Sink backed by a buffered channel. Publish blocks while the
// buffer is full; events published after Close are dropped.
type Channel struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
}

// NewChannel creates a Channel with the given buffer size.
func NewChannel(buffer int) *Channel {
	if buffer < 0 {
		buffer = 0
	}
	return &Channel{ch: make(chan Event, buffer)}
}

// Publish sends ev to the channel.
func (c *Channel) Publish(ev Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	c.ch <- ev
}

// Events returns the read side. It is closed by Close.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

// Close stops accepting events and closes the read side. Close must not be
// called while a Publish is blocked on a full buffer with no reader.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish appends ev.
func (r *Recorder) Publish(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
