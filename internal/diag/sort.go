package diag

import "sort"

// SortRecords orders records by: document, start, end, severity (desc), id (asc)
// for stable, deterministic output. The slice is sorted in place.
func SortRecords(items []Record) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := &items[i], &items[j]
		if di.Document != dj.Document {
			return di.Document < dj.Document
		}
		li, lj := di.Location, dj.Location
		if li.StartLine != lj.StartLine {
			return li.StartLine < lj.StartLine
		}
		if li.StartCol != lj.StartCol {
			return li.StartCol < lj.StartCol
		}
		if li.EndLine != lj.EndLine {
			return li.EndLine < lj.EndLine
		}
		if li.EndCol != lj.EndCol {
			return li.EndCol < lj.EndCol
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.ID < dj.ID
	})
}

// Counts tallies records per severity.
type Counts struct {
	Hidden, Info, Warning, Error int
}

// Count returns per-severity totals for items.
func Count(items []Record) Counts {
	var c Counts
	for i := range items {
		switch items[i].Severity {
		case SevHidden:
			c.Hidden++
		case SevInfo:
			c.Info++
		case SevWarning:
			c.Warning++
		case SevError:
			c.Error++
		}
	}
	return c
}

// HasErrors returns true if at least one record has Severity >= Error.
func HasErrors(items []Record) bool {
	for i := range items {
		if items[i].Severity >= SevError {
			return true
		}
	}
	return false
}
