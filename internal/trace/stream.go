package trace

import (
	"io"
	"sync"
)

// Stream writes each event to w as it arrives.
type Stream struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
}

// NewStream creates a Stream. FormatAuto means text.
func NewStream(w io.Writer, level Level, format Format) *Stream {
	if format == FormatAuto {
		format = FormatText
	}
	return &Stream{w: w, level: level, format: format}
}

func (t *Stream) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	data := FormatEvent(ev, t.format)
	t.mu.Lock()
	defer t.mu.Unlock()
	// A broken trace sink must not fail reconciliation.
	_, _ = t.w.Write(data)
}

// Flush flushes w when it buffers.
func (t *Stream) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes and closes w when it is a Closer.
func (t *Stream) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *Stream) Level() Level { return t.level }
