package trace

import (
	"sync/atomic"
	"time"
)

var spanIDs atomic.Uint64

// Span is an operation with a begin and an end event. The zero-id span
// returned for filtered scopes accepts every call and emits nothing.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	attrs   map[string]string
}

func begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Level().ShouldEmit(scope) {
		return &Span{}
	}
	s := &Span{
		tracer:  t,
		id:      spanIDs.Add(1),
		parent:  parent,
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	emit(t, &Event{
		Time:     s.started,
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: parent,
		Name:     name,
	})
	return s
}

// Set records an attribute reported on the end event.
func (s *Span) Set(key, value string) *Span {
	if s == nil || s.id == 0 {
		return s
	}
	if s.attrs == nil {
		s.attrs = make(map[string]string)
	}
	s.attrs[key] = value
	return s
}

// End emits the end event with detail as its outcome and returns the span's
// duration. Inert spans return zero.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.id == 0 {
		return 0
	}
	elapsed := time.Since(s.started)
	emit(s.tracer, &Event{
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     s.name,
		Detail:   detail,
		Elapsed:  elapsed,
		Attrs:    s.attrs,
	})
	return elapsed
}

// ID returns the span id, zero for inert spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// emit stamps ev with a time and sequence number and hands it to t.
func emit(t Tracer, ev *Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	ev.Seq = nextSeq()
	t.Emit(ev)
}
