package diag

type dedupKey struct {
	id       string
	sev      Severity
	document string
	loc      Location
	msg      string
}

// Dedup drops records that repeat the id, severity, document, primary
// location and message of an earlier record. The first occurrence wins and
// order is preserved. The input slice is not modified.
func Dedup(items []Record) []Record {
	if len(items) < 2 {
		return items
	}
	seen := make(map[dedupKey]struct{}, len(items))
	out := make([]Record, 0, len(items))
	for i := range items {
		r := &items[i]
		key := dedupKey{
			id:       r.ID,
			sev:      r.Severity,
			document: r.Document,
			loc:      r.Location,
			msg:      r.Message,
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, *r)
	}
	return out
}
