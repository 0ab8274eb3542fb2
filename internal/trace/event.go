package trace

import "time"

// Kind is the type of a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindMark
	KindHeartbeat
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindMark:      "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if k == 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	// ScopeEvent covers one build event, live result or teardown.
	ScopeEvent Scope = iota + 1
	// ScopeArtifact covers one project or document pass.
	ScopeArtifact
	// ScopeCell covers a single cell operation.
	ScopeCell
)

var scopeNames = [...]string{
	ScopeEvent:    "event",
	ScopeArtifact: "artifact",
	ScopeCell:     "cell",
}

func (s Scope) String() string {
	if s == 0 || int(s) >= len(scopeNames) {
		return "unknown"
	}
	return scopeNames[s]
}

// Event is one trace record.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64 // zero for marks and heartbeats
	ParentID uint64 // enclosing span, zero at the root
	Name     string // e.g. "build", "artifact", "persist"
	Detail   string
	Elapsed  time.Duration // set on span ends
	Attrs    map[string]string
}
