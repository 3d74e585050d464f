package pipeline

import "math"

// Derive applies a pure per-record derivation to every record and returns a
// fresh slice. fn must compute derived fields only from the record's own
// inputs so that re-deriving an already derived record is a no-op.
func Derive[T any](records []T, fn func(T) T) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		out = append(out, fn(rec))
	}
	return out
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Percent computes num/den as a percentage rounded to one decimal place. A
// non-positive denominator yields 0 rather than an error; this is the
// defined zero-guard for progress and completion rates.
func Percent(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return Round1(num / den * 100)
}
