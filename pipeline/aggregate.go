package pipeline

import "sort"

// Metric names one summed value inside a group.
type Metric[T any] struct {
	Name  string
	Value func(T) float64
}

// Group is one aggregation bucket. K may be any comparable type; composite
// groupings use a struct key.
type Group[K comparable] struct {
	Key   K                  `json:"key"`
	Count int                `json:"count"`
	Sums  map[string]float64 `json:"sums"`
}

// Sum returns the named sum, zero when the metric was not collected.
func (g Group[K]) Sum(name string) float64 {
	return g.Sums[name]
}

// GroupBy groups records by key and accumulates the given metrics per group.
// key returns ok=false to exclude a record from the grouping (records whose
// sprint failed numeric extraction, for example). Each group appears exactly
// once, in first-seen order; empty groups are never synthesized here, use
// EnsureKeys for that. The per-group merge is commutative and associative, so
// partial aggregates from independent batches can be combined by re-running
// GroupBy over their concatenation.
func GroupBy[T any, K comparable](records []T, key func(T) (K, bool), metrics ...Metric[T]) []Group[K] {
	index := make(map[K]int)
	groups := make([]Group[K], 0)

	for _, rec := range records {
		k, ok := key(rec)
		if !ok {
			continue
		}
		pos, seen := index[k]
		if !seen {
			pos = len(groups)
			index[k] = pos
			sums := make(map[string]float64, len(metrics))
			for _, m := range metrics {
				sums[m.Name] = 0
			}
			groups = append(groups, Group[K]{Key: k, Sums: sums})
		}
		groups[pos].Count++
		for _, m := range metrics {
			groups[pos].Sums[m.Name] += m.Value(rec)
		}
	}
	return groups
}

// EnsureKeys appends zero-valued groups for any of the given keys not already
// present, so callers that need empty groups (contractors with no tasks) can
// request them explicitly. metricNames seeds the zero sums of the appended
// groups.
func EnsureKeys[K comparable](groups []Group[K], keys []K, metricNames ...string) []Group[K] {
	present := make(map[K]struct{}, len(groups))
	for _, g := range groups {
		present[g.Key] = struct{}{}
	}
	out := append([]Group[K](nil), groups...)
	for _, k := range keys {
		if _, ok := present[k]; ok {
			continue
		}
		present[k] = struct{}{}
		sums := make(map[string]float64, len(metricNames))
		for _, name := range metricNames {
			sums[name] = 0
		}
		out = append(out, Group[K]{Key: k, Sums: sums})
	}
	return out
}

// SortGroups orders groups in place with a stable sort.
func SortGroups[K comparable](groups []Group[K], less func(a, b Group[K]) bool) {
	sort.SliceStable(groups, func(i, j int) bool { return less(groups[i], groups[j]) })
}
