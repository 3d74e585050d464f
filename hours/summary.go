package hours

import (
	"sort"
	"strings"

	"github.com/usps-dataeng/versionone-dashboard/domain"
	"github.com/usps-dataeng/versionone-dashboard/pipeline"
)

// Metric names used across the hour summaries.
const (
	MetricEstimated = "estimated"
	MetricCompleted = "completed"
	MetricRemaining = "remaining"
	MetricProjects  = "projectHours"
)

func hourMetrics() []pipeline.Metric[domain.Task] {
	return []pipeline.Metric[domain.Task]{
		{Name: MetricEstimated, Value: func(t domain.Task) float64 { return t.EstimatedHours }},
		{Name: MetricCompleted, Value: func(t domain.Task) float64 { return t.CompletedHours }},
		{Name: MetricRemaining, Value: func(t domain.Task) float64 { return t.RemainingHours }},
		{Name: MetricProjects, Value: func(t domain.Task) float64 { return t.TotalProjectHours }},
	}
}

// Overview carries the dashboard headline numbers.
type Overview struct {
	TaskCount         int     `json:"taskCount"`
	TotalEstimated    float64 `json:"totalEstimated"`
	TotalCompleted    float64 `json:"totalCompleted"`
	TotalRemaining    float64 `json:"totalRemaining"`
	OverallProgress   float64 `json:"overallProgress"`
	TotalProjectHours float64 `json:"totalProjectHours"`
	TasksWithProjects int     `json:"tasksWithProjects"`
}

// Summarize computes the overview totals for a derived batch.
func Summarize(tasks []domain.Task) Overview {
	o := Overview{TaskCount: len(tasks)}
	for _, t := range tasks {
		o.TotalEstimated += t.EstimatedHours
		o.TotalCompleted += t.CompletedHours
		o.TotalRemaining += t.RemainingHours
		o.TotalProjectHours += t.TotalProjectHours
		if t.TotalProjectHours > 0 {
			o.TasksWithProjects++
		}
	}
	o.OverallProgress = pipeline.Percent(o.TotalCompleted, o.TotalEstimated)
	return o
}

// CompletionRate is the group-level completion percentage with the same
// zero-guard as per-task progress.
func CompletionRate[K comparable](g pipeline.Group[K]) float64 {
	return pipeline.Percent(g.Sum(MetricCompleted), g.Sum(MetricEstimated))
}

// BySprint groups tasks by sprint number, ascending. Tasks whose sprint
// failed numeric extraction are excluded, not coerced to zero.
func BySprint(tasks []domain.Task) []pipeline.Group[int] {
	groups := pipeline.GroupBy(tasks, func(t domain.Task) (int, bool) {
		if t.Sprint == nil {
			return 0, false
		}
		return *t.Sprint, true
	}, hourMetrics()...)
	pipeline.SortGroups(groups, func(a, b pipeline.Group[int]) bool { return a.Key < b.Key })
	return groups
}

// ByContractorGroup groups tasks by contractor group, descending by
// completed hours.
func ByContractorGroup(tasks []domain.Task) []pipeline.Group[string] {
	groups := pipeline.GroupBy(tasks, func(t domain.Task) (string, bool) {
		return t.ContractorGroup, true
	}, hourMetrics()...)
	pipeline.SortGroups(groups, func(a, b pipeline.Group[string]) bool {
		return a.Sum(MetricCompleted) > b.Sum(MetricCompleted)
	})
	return groups
}

// ByStatus groups tasks by lower-cased status.
func ByStatus(tasks []domain.Task) []pipeline.Group[string] {
	return pipeline.GroupBy(tasks, func(t domain.Task) (string, bool) {
		return strings.ToLower(strings.TrimSpace(t.Status)), true
	}, hourMetrics()...)
}

// ByOwner groups tasks by owner. roster may be nil; when given, every roster
// owner appears even with zero tasks, so inactive contractors show up in the
// accountability view.
func ByOwner(tasks []domain.Task, roster *domain.Roster) []pipeline.Group[string] {
	groups := pipeline.GroupBy(tasks, func(t domain.Task) (string, bool) {
		return t.Owner, true
	}, hourMetrics()...)
	if roster != nil {
		groups = pipeline.EnsureKeys(groups, roster.Owners(),
			MetricEstimated, MetricCompleted, MetricRemaining, MetricProjects)
	}
	return groups
}

// Accountability summarizes contractor activity over owner groups.
type Accountability struct {
	Total        int     `json:"total"`
	Active       int     `json:"active"`
	Inactive     int     `json:"inactive"`
	ActivityRate float64 `json:"activityRate"`
}

// AccountabilityStats counts active (at least one task) and inactive owners.
func AccountabilityStats(owners []pipeline.Group[string]) Accountability {
	a := Accountability{Total: len(owners)}
	for _, g := range owners {
		if g.Count > 0 {
			a.Active++
		}
	}
	a.Inactive = a.Total - a.Active
	a.ActivityRate = pipeline.Percent(float64(a.Active), float64(a.Total))
	return a
}

// ProjectTotal is the summed hours for one project code.
type ProjectTotal struct {
	Code  string  `json:"code"`
	Hours float64 `json:"hours"`
}

// ProjectTotals sums every project-code column across the batch, descending
// by hours. Codes with zero hours are kept so every enumerated project is
// reported.
func ProjectTotals(tasks []domain.Task) []ProjectTotal {
	totals := make([]ProjectTotal, 0, len(domain.ProjectCodes))
	for _, code := range domain.ProjectCodes {
		sum := 0.0
		for _, t := range tasks {
			sum += t.ProjectHours[code]
		}
		totals = append(totals, ProjectTotal{Code: code, Hours: sum})
	}
	sort.SliceStable(totals, func(i, j int) bool { return totals[i].Hours > totals[j].Hours })
	return totals
}

// SprintProjects is one row of the project-by-sprint matrix.
type SprintProjects struct {
	Sprint int                `json:"sprint"`
	Hours  map[string]float64 `json:"hours"`
}

// ProjectBySprint sums project hours per sprint, ascending by sprint.
func ProjectBySprint(tasks []domain.Task) []SprintProjects {
	index := make(map[int]int)
	rows := make([]SprintProjects, 0)
	for _, t := range tasks {
		if t.Sprint == nil {
			continue
		}
		pos, seen := index[*t.Sprint]
		if !seen {
			pos = len(rows)
			index[*t.Sprint] = pos
			hours := make(map[string]float64, len(domain.ProjectCodes))
			for _, code := range domain.ProjectCodes {
				hours[code] = 0
			}
			rows = append(rows, SprintProjects{Sprint: *t.Sprint, Hours: hours})
		}
		for _, code := range domain.ProjectCodes {
			rows[pos].Hours[code] += t.ProjectHours[code]
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Sprint < rows[j].Sprint })
	return rows
}

// CompletedTasks filters to tasks whose status is "completed", compared
// case-insensitively. sprint, when non-nil, additionally filters to one
// sprint.
func CompletedTasks(tasks []domain.Task, sprint *int) []domain.Task {
	out := make([]domain.Task, 0)
	for _, t := range tasks {
		if !t.StatusIs("completed") {
			continue
		}
		if sprint != nil && (t.Sprint == nil || *t.Sprint != *sprint) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SprintTasks filters to one sprint.
func SprintTasks(tasks []domain.Task, sprint int) []domain.Task {
	out := make([]domain.Task, 0)
	for _, t := range tasks {
		if t.Sprint != nil && *t.Sprint == sprint {
			out = append(out, t)
		}
	}
	return out
}

// BacklogTasks filters to tasks carrying a backlog label.
func BacklogTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, 0)
	for _, t := range tasks {
		if t.InBacklog() {
			out = append(out, t)
		}
	}
	return out
}

// TopByEstimated returns the n largest tasks by estimated hours, stable for
// ties.
func TopByEstimated(tasks []domain.Task, n int) []domain.Task {
	sorted := append([]domain.Task(nil), tasks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EstimatedHours > sorted[j].EstimatedHours
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
