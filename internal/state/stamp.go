package state

import (
	"strconv"
	"sync/atomic"
	"time"
)

// Stamp identifies a point-in-time content or semantic state of an artifact.
// Stamps are totally ordered and cheap to copy. The zero value is
// DefaultStamp, which marks a batch as not cache-eligible.
type Stamp uint64

// DefaultStamp is the designated "unversioned" stamp used by build passes.
const DefaultStamp Stamp = 0

var lastStamp uint64

// NextStamp returns a process-wide monotonically increasing stamp, never
// DefaultStamp.
func NextStamp() Stamp {
	return Stamp(atomic.AddUint64(&lastStamp, 1))
}

// StampFromTime derives a stamp from a wall-clock time, e.g. a file's
// modification time. Times at or before the Unix epoch map to stamp 1 so the
// result is never DefaultStamp.
func StampFromTime(t time.Time) Stamp {
	n := t.UnixNano()
	if n <= 0 {
		return 1
	}
	return Stamp(n)
}

// IsDefault reports whether s is DefaultStamp.
func (s Stamp) IsDefault() bool {
	return s == DefaultStamp
}

// Compare returns -1, 0 or +1 depending on whether s is older than, equal to
// or newer than o.
func (s Stamp) Compare(o Stamp) int {
	switch {
	case s < o:
		return -1
	case s > o:
		return 1
	default:
		return 0
	}
}

// Less reports whether s is strictly older than o.
func (s Stamp) Less(o Stamp) bool {
	return s < o
}

func (s Stamp) String() string {
	if s.IsDefault() {
		return "default"
	}
	return "v" + strconv.FormatUint(uint64(s), 10)
}
