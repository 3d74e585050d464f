// Package hours reconciles VersionOne task exports against the contractor
// roster and derives the hour metrics the dashboard reports on.
package hours

import (
	"github.com/usps-dataeng/versionone-dashboard/domain"
	"github.com/usps-dataeng/versionone-dashboard/pipeline"
)

// Source column names, exactly as the export spreadsheet carries them.
const (
	colID       = "ID"
	colTitle    = "Title"
	colOwner    = "Owner"
	colStatus   = "Status"
	colSprint   = "Sprint"
	colBacklog  = "Backlog"
	colPlanning = "Planning Level"
	colEstHours = "Est. Hours"
	colToDo     = "To Do"
)

// Schema builds the normalization schema for task export rows. ID and Title
// are identity fields; hour fields reject negative values; every project
// code column is synthesized at zero when absent from the source.
func Schema() *pipeline.Schema[domain.Task] {
	s := pipeline.NewSchema(func(t *domain.Task) {
		t.ProjectHours = make(map[string]float64, len(domain.ProjectCodes))
		for _, code := range domain.ProjectCodes {
			t.ProjectHours[code] = 0
		}
	})
	s.RequireString(colID, func(t *domain.Task, v string) { t.ID = v })
	s.RequireString(colTitle, func(t *domain.Task, v string) { t.Title = v })
	s.String(colOwner, "", func(t *domain.Task, v string) { t.Owner = v })
	s.String(colStatus, "Unknown", func(t *domain.Task, v string) { t.Status = v })
	s.ExtractedInt(colSprint, func(t *domain.Task, v *int) { t.Sprint = v })
	s.String(colBacklog, "", func(t *domain.Task, v string) { t.Backlog = v })
	s.String(colPlanning, "", func(t *domain.Task, v string) { t.PlanningLevel = v })
	s.NonNegativeNumber(colEstHours, func(t *domain.Task, v float64) { t.EstimatedHours = v })
	s.NonNegativeNumber(colToDo, func(t *domain.Task, v float64) { t.RemainingHours = v })
	for _, code := range domain.ProjectCodes {
		code := code
		s.Number(code, func(t *domain.Task, v float64) { t.ProjectHours[code] = v })
	}
	return s
}

// Normalize converts raw export rows into canonical tasks. Rows missing ID
// or Title come back as validation errors instead of records; everything
// else degrades to defaults.
func Normalize(rows []pipeline.Row) ([]domain.Task, []pipeline.ValidationError) {
	return Schema().Normalize(rows)
}

// JoinRoster attaches contractor groups to tasks via a left join on the
// trimmed owner name. Unmatched tasks get domain.UnknownGroup; the unmatched
// count is returned for logging.
func JoinRoster(tasks []domain.Task, roster *domain.Roster) ([]domain.Task, int) {
	table := make(map[string]domain.RosterEntry, roster.Len())
	for _, e := range roster.Entries() {
		table[e.Owner] = e
	}
	return pipeline.Join(tasks, table,
		func(t domain.Task) string { return t.Owner },
		func(t domain.Task, e domain.RosterEntry, ok bool) domain.Task {
			if ok {
				t.ContractorGroup = e.ContractorGroup
			} else {
				t.ContractorGroup = domain.UnknownGroup
			}
			return t
		})
}
