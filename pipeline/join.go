package pipeline

import "strings"

// BuildReference indexes reference entries by key for joining. Keys are
// whitespace-trimmed; comparisons stay case-sensitive. When two entries share
// a key the first one wins and the rest are discarded; the number of
// discarded duplicates is returned so loaders can log it.
func BuildReference[R any](entries []R, key func(R) string) (map[string]R, int) {
	table := make(map[string]R, len(entries))
	dups := 0
	for _, e := range entries {
		k := strings.TrimSpace(key(e))
		if k == "" {
			continue
		}
		if _, exists := table[k]; exists {
			dups++
			continue
		}
		table[k] = e
	}
	return table, dups
}

// Join left-joins records against a reference table. Every input record is
// preserved: attach is invoked once per record with the matched entry and a
// match flag, and returns the updated record. Unmatched records are expected
// to receive the documented defaults from attach. The second return value is
// the unmatched count, surfaced for observability only.
func Join[T, R any](records []T, table map[string]R, key func(T) string, attach func(T, R, bool) T) ([]T, int) {
	out := make([]T, 0, len(records))
	unmatched := 0
	for _, rec := range records {
		entry, ok := table[strings.TrimSpace(key(rec))]
		if !ok {
			unmatched++
		}
		out = append(out, attach(rec, entry, ok))
	}
	return out, unmatched
}
