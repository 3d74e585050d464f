package domain

import "strings"

// ProjectCodes is the closed list of planning-level project codes that hours
// are allocated under. Every normalized task carries a value for each code,
// zero when the source export had no such column.
var ProjectCodes = []string{
	"CDAS-6441",
	"EDS-4834",
	"EEB-9372",
	"UAP-SPM-9442",
	"UAP-IV-9443",
	"UAPSAL-9402",
}

// UnknownGroup is the contractor group assigned when the roster has no entry
// for a task's owner.
const UnknownGroup = "Unknown"

// Task is one unit of tracked work from a VersionOne export, after
// normalization and roster attachment. CompletedHours, ProgressPercent and
// TotalProjectHours are always recomputed from the input fields, never
// carried over.
type Task struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Owner             string             `json:"owner"`
	ContractorGroup   string             `json:"contractorGroup"`
	Status            string             `json:"status"`
	Sprint            *int               `json:"sprint"`
	Backlog           string             `json:"backlog,omitempty"`
	PlanningLevel     string             `json:"planningLevel,omitempty"`
	EstimatedHours    float64            `json:"estimatedHours"`
	RemainingHours    float64            `json:"remainingHours"`
	CompletedHours    float64            `json:"completedHours"`
	ProgressPercent   float64            `json:"progressPercent"`
	ProjectHours      map[string]float64 `json:"projectHours"`
	TotalProjectHours float64            `json:"totalProjectHours"`
}

// StatusIs compares the task status case-insensitively; stored statuses keep
// their source casing.
func (t Task) StatusIs(status string) bool {
	return strings.EqualFold(strings.TrimSpace(t.Status), strings.TrimSpace(status))
}

// InBacklog reports whether the task carries a non-blank backlog label.
func (t Task) InBacklog() bool {
	return strings.TrimSpace(t.Backlog) != ""
}

// CloneProjectHours copies the per-project hour map so derivation stages can
// produce fresh records without mutating their input.
func (t Task) CloneProjectHours() map[string]float64 {
	out := make(map[string]float64, len(t.ProjectHours))
	for k, v := range t.ProjectHours {
		out[k] = v
	}
	return out
}
