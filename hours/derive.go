package hours

import (
	"github.com/usps-dataeng/versionone-dashboard/domain"
	"github.com/usps-dataeng/versionone-dashboard/pipeline"
)

// DeriveMetrics recomputes every derived field on each task from its input
// fields. It is pure and idempotent: deriving an already derived batch
// changes nothing.
func DeriveMetrics(tasks []domain.Task) []domain.Task {
	return pipeline.Derive(tasks, deriveTask)
}

func deriveTask(t domain.Task) domain.Task {
	// Remaining beyond the estimate yields negative completed hours. That is
	// a signal worth surfacing, not an error, so there is no floor at zero.
	t.CompletedHours = t.EstimatedHours - t.RemainingHours
	t.ProgressPercent = pipeline.Percent(t.CompletedHours, t.EstimatedHours)

	hours := t.CloneProjectHours()
	total := 0.0
	for _, code := range domain.ProjectCodes {
		total += hours[code]
	}
	t.ProjectHours = hours
	t.TotalProjectHours = total
	return t
}

// AllocatePlanningLevel rewrites the per-project hour columns from each
// task's planning level: the task's completed hours land under its own code,
// every other code goes to zero. This is the dashboard loader's allocation
// step for exports that carry a planning level instead of explicit project
// columns. Totals are recomputed so the result stays derivable.
func AllocatePlanningLevel(tasks []domain.Task) []domain.Task {
	return pipeline.Derive(tasks, func(t domain.Task) domain.Task {
		hours := make(map[string]float64, len(domain.ProjectCodes))
		total := 0.0
		for _, code := range domain.ProjectCodes {
			v := 0.0
			if t.PlanningLevel == code {
				v = t.EstimatedHours - t.RemainingHours
			}
			hours[code] = v
			total += v
		}
		t.ProjectHours = hours
		t.TotalProjectHours = total
		return t
	})
}

// MergeSnapshots merges task batches taken at different times, keeping the
// last record seen for each ID. IDs keep their first-appearance order.
func MergeSnapshots(snapshots ...[]domain.Task) []domain.Task {
	index := make(map[string]int)
	merged := make([]domain.Task, 0)
	for _, snap := range snapshots {
		for _, t := range snap {
			if pos, seen := index[t.ID]; seen {
				merged[pos] = t
				continue
			}
			index[t.ID] = len(merged)
			merged = append(merged, t)
		}
	}
	return merged
}
