package api

import (
	"github.com/usps-dataeng/versionone-dashboard/domain"
	"github.com/usps-dataeng/versionone-dashboard/hours"
	"github.com/usps-dataeng/versionone-dashboard/pipeline"
	"github.com/usps-dataeng/versionone-dashboard/vmopt"
)

const (
	postCommandMaxSize = 64 * 1024        // 64 KiB
	postReportMaxSize  = 16 * 1024 * 1024 // 16 MiB
)

// POST /api/commands response body
type postCommandResponse struct {
	IdempotencyKeys []string `json:"idempotencyKeys,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// POST /api/reports/hours response body
type hoursReportResponse struct {
	ReportID         string                     `json:"reportId"`
	Snapshot         string                     `json:"snapshot,omitempty"`
	Tasks            []domain.Task              `json:"tasks"`
	RowsReceived     int                        `json:"rowsReceived"`
	RowsRejected     int                        `json:"rowsRejected"`
	UnmatchedOwners  int                        `json:"unmatchedOwners"`
	ValidationErrors []pipeline.ValidationError `json:"validationErrors,omitempty"`
	Overview         hours.Overview             `json:"overview"`
	BySprint         []pipeline.Group[int]      `json:"bySprint"`
	ByGroup          []pipeline.Group[string]   `json:"byContractorGroup"`
	ByStatus         []pipeline.Group[string]   `json:"byStatus"`
	Accountability   hours.Accountability       `json:"accountability"`
	ProjectTotals    []hours.ProjectTotal       `json:"projectTotals"`
}

// POST /api/reports/vms response body
type vmReportResponse struct {
	ReportID         string                     `json:"reportId"`
	VMsReceived      int                        `json:"vmsReceived"`
	RowsRejected     int                        `json:"rowsRejected"`
	ValidationErrors []pipeline.ValidationError `json:"validationErrors,omitempty"`
	Summary          []vmopt.CategorySummary    `json:"summary"`
	Clusters         []vmopt.ClusterSummary     `json:"clusters"`
	Candidates       []domain.Optimization      `json:"candidates"`
}

// GET /api/snapshots/:name response body
type snapshotResponse struct {
	Snapshot        string                 `json:"snapshot"`
	Sprint          *int                   `json:"sprint,omitempty"`
	Tasks           []domain.Task          `json:"tasks"`
	Overview        hours.Overview         `json:"overview"`
	ProjectBySprint []hours.SprintProjects `json:"projectBySprint"`
	CompletedTasks  []domain.Task          `json:"completedTasks"`
	BacklogTasks    []domain.Task          `json:"backlogTasks"`
	TopTasks        []domain.Task          `json:"topTasks"`
}
