package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"diagsync/internal/diag"
)

// CheckMergeRetention verifies merged = next ++ retained hidden of prev:
// 1) merged starts with next, unchanged and in order
// 2) every Hidden record of prev whose id is absent from next follows, in prev order
// 3) nothing else is appended
func CheckMergeRetention(merged, next, prev []diag.Record) error {
	if len(merged) < len(next) {
		return fmt.Errorf("merged has %d records, fewer than the %d new ones", len(merged), len(next))
	}
	for i := range next {
		if !sameRecord(&merged[i], &next[i]) {
			return fmt.Errorf("merged[%d] = %s, want new record %s", i, merged[i].ID, next[i].ID)
		}
	}

	reported := make(map[string]bool, len(next))
	for i := range next {
		reported[next[i].ID] = true
	}
	tail := merged[len(next):]
	j := 0
	for i := range prev {
		if !prev[i].IsHidden() || reported[prev[i].ID] {
			continue
		}
		if j >= len(tail) {
			return fmt.Errorf("hidden record %s of the previous batch was dropped", prev[i].ID)
		}
		if !sameRecord(&tail[j], &prev[i]) {
			return fmt.Errorf("retained[%d] = %s, want hidden %s", j, tail[j].ID, prev[i].ID)
		}
		j++
	}
	if j != len(tail) {
		return fmt.Errorf("%d unexpected records after retained hidden ones (first %s)", len(tail)-j, tail[j].ID)
	}
	return nil
}

// CheckDescriptorDedup verifies that every record of id X was shaped by the
// first descriptor declaring X, never by a later one sharing the id.
func CheckDescriptorDedup(out []diag.Record, descriptors []diag.Descriptor) error {
	first := make(map[string]*diag.Descriptor, len(descriptors))
	for i := range descriptors {
		if _, ok := first[descriptors[i].ID]; !ok {
			first[descriptors[i].ID] = &descriptors[i]
		}
	}
	for i := range out {
		d, ok := first[out[i].ID]
		if !ok {
			return fmt.Errorf("record %d has undeclared id %q", i, out[i].ID)
		}
		if out[i].Category != d.Category || out[i].Title != d.Title || out[i].HelpLink != d.HelpLink {
			return fmt.Errorf("record %d (%s) not shaped by the first descriptor: category=%q title=%q",
				i, out[i].ID, out[i].Category, out[i].Title)
		}
	}
	return nil
}

// CheckLocations verifies that every location has 1-based coordinates that
// fit the 32-bit range consumers use, and that ranges do not end before they
// start.
func CheckLocations(items []diag.Record) error {
	for i := range items {
		locs := append([]diag.Location{items[i].Location}, items[i].AdditionalLocations...)
		for _, l := range locs {
			if l.IsZero() {
				continue
			}
			for _, v := range []int{l.StartLine, l.StartCol, l.EndLine, l.EndCol} {
				if _, err := safecast.Conv[uint32](v); err != nil {
					return fmt.Errorf("record %d (%s): coordinate out of range at %s: %w", i, items[i].ID, l, err)
				}
			}
			if l.EndLine != 0 && (l.EndLine < l.StartLine || (l.EndLine == l.StartLine && l.EndCol < l.StartCol)) {
				return fmt.Errorf("record %d (%s): range ends before it starts at %s", i, items[i].ID, l)
			}
		}
	}
	return nil
}

func sameRecord(a, b *diag.Record) bool {
	return a.ID == b.ID && a.Message == b.Message && a.Severity == b.Severity &&
		a.Document == b.Document && a.Location == b.Location
}
