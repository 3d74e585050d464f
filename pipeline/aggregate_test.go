package pipeline

import (
	"reflect"
	"testing"
)

type aggRec struct {
	Sprint    *int
	Estimated float64
	Completed float64
}

func aggMetrics() []Metric[aggRec] {
	return []Metric[aggRec]{
		{Name: "estimated", Value: func(r aggRec) float64 { return r.Estimated }},
		{Name: "completed", Value: func(r aggRec) float64 { return r.Completed }},
	}
}

func sprintKey(r aggRec) (int, bool) {
	if r.Sprint == nil {
		return 0, false
	}
	return *r.Sprint, true
}

func TestGroupByAccumulates(t *testing.T) {
	s42, s43 := 42, 43
	records := []aggRec{
		{Sprint: &s42, Estimated: 10, Completed: 6},
		{Sprint: &s42, Estimated: 10, Completed: 4},
		{Sprint: &s43, Estimated: 5, Completed: 5},
	}

	groups := GroupBy(records, sprintKey, aggMetrics()...)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	first := groups[0]
	if first.Key != 42 || first.Count != 2 {
		t.Fatalf("unexpected first group: %+v", first)
	}
	if first.Sum("completed") != 10 || first.Sum("estimated") != 20 {
		t.Fatalf("unexpected sums: %#v", first.Sums)
	}
	if rate := Percent(first.Sum("completed"), first.Sum("estimated")); rate != 50.0 {
		t.Fatalf("expected completion rate 50.0, got %v", rate)
	}
}

func TestGroupByExcludesNilKeys(t *testing.T) {
	s42 := 42
	records := []aggRec{
		{Sprint: &s42, Estimated: 10},
		{Sprint: nil, Estimated: 99},
	}
	groups := GroupBy(records, sprintKey, aggMetrics()...)
	if len(groups) != 1 {
		t.Fatalf("nil sprint must be excluded, got %d groups", len(groups))
	}
	if groups[0].Sum("estimated") != 10 {
		t.Fatalf("excluded record leaked into sums: %#v", groups[0].Sums)
	}
}

func TestGroupByFirstSeenOrder(t *testing.T) {
	a, b, c := 3, 1, 2
	records := []aggRec{{Sprint: &a}, {Sprint: &b}, {Sprint: &a}, {Sprint: &c}}
	groups := GroupBy(records, sprintKey)

	keys := make([]int, 0, len(groups))
	for _, g := range groups {
		keys = append(keys, g.Key)
	}
	if !reflect.DeepEqual(keys, []int{3, 1, 2}) {
		t.Fatalf("groups must keep first-seen order, got %v", keys)
	}
}

func TestGroupByCompositeKey(t *testing.T) {
	type key struct {
		Cluster string
		Size    string
	}
	type rec struct {
		Cluster string
		Size    string
		Cost    float64
	}
	records := []rec{
		{Cluster: "c1", Size: "D8", Cost: 100},
		{Cluster: "c1", Size: "D8", Cost: 50},
		{Cluster: "c1", Size: "E4", Cost: 10},
	}
	groups := GroupBy(records,
		func(r rec) (key, bool) { return key{r.Cluster, r.Size}, true },
		Metric[rec]{Name: "cost", Value: func(r rec) float64 { return r.Cost }})
	if len(groups) != 2 {
		t.Fatalf("expected 2 composite groups, got %d", len(groups))
	}
	if groups[0].Sum("cost") != 150 {
		t.Fatalf("unexpected cost sum: %v", groups[0].Sum("cost"))
	}
}

func TestEnsureKeysAppendsZeroGroups(t *testing.T) {
	s42 := 42
	groups := GroupBy([]aggRec{{Sprint: &s42, Estimated: 10}}, sprintKey, aggMetrics()...)
	full := EnsureKeys(groups, []int{42, 43}, "estimated", "completed")

	if len(full) != 2 {
		t.Fatalf("expected appended zero group, got %d", len(full))
	}
	zero := full[1]
	if zero.Key != 43 || zero.Count != 0 {
		t.Fatalf("unexpected zero group: %+v", zero)
	}
	if zero.Sum("estimated") != 0 || zero.Sum("completed") != 0 {
		t.Fatalf("zero group sums must be seeded: %#v", zero.Sums)
	}
}

func TestSortGroups(t *testing.T) {
	groups := []Group[string]{
		{Key: "b", Sums: map[string]float64{"savings": 10}},
		{Key: "a", Sums: map[string]float64{"savings": 30}},
		{Key: "c", Sums: map[string]float64{"savings": 20}},
	}
	SortGroups(groups, func(x, y Group[string]) bool { return x.Sum("savings") > y.Sum("savings") })
	if groups[0].Key != "a" || groups[2].Key != "b" {
		t.Fatalf("unexpected order: %v %v %v", groups[0].Key, groups[1].Key, groups[2].Key)
	}
}

func TestPercentZeroGuard(t *testing.T) {
	if got := Percent(6, 0); got != 0 {
		t.Fatalf("Percent with zero denominator must be 0, got %v", got)
	}
	if got := Percent(6, 10); got != 60.0 {
		t.Fatalf("Percent(6,10) = %v, want 60.0", got)
	}
	if got := Percent(1, 3); got != 33.3 {
		t.Fatalf("Percent(1,3) = %v, want 33.3", got)
	}
}
