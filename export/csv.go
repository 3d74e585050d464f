// Package export renders derived records as CSV reports.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/usps-dataeng/versionone-dashboard/domain"
	"github.com/usps-dataeng/versionone-dashboard/vmopt"
)

// WriteTasksCSV writes the derived task set including the per-project hour
// columns.
func WriteTasksCSV(w io.Writer, tasks []domain.Task) error {
	cw := csv.NewWriter(w)
	header := []string{
		"ID", "Title", "Owner", "Contractor Group", "Status", "Sprint",
		"Backlog", "Planning Level", "Est. Hours", "To Do", "Completed", "Progress %",
	}
	header = append(header, domain.ProjectCodes...)
	header = append(header, "Total Project Hours")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range tasks {
		sprint := ""
		if t.Sprint != nil {
			sprint = strconv.Itoa(*t.Sprint)
		}
		record := []string{
			t.ID, t.Title, t.Owner, t.ContractorGroup, t.Status, sprint,
			t.Backlog, t.PlanningLevel,
			formatHours(t.EstimatedHours),
			formatHours(t.RemainingHours),
			formatHours(t.CompletedHours),
			formatHours(t.ProgressPercent),
		}
		for _, code := range domain.ProjectCodes {
			record = append(record, formatHours(t.ProjectHours[code]))
		}
		record = append(record, formatHours(t.TotalProjectHours))
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOptimizationsCSV writes the per-VM optimization report.
func WriteOptimizationsCSV(w io.Writer, opts []domain.Optimization) error {
	cw := csv.NewWriter(w)
	header := []string{
		"VM Name", "Resource Group", "Run Name", "Size", "Power State",
		"Categories", "Spot Status", "Monthly Cost", "Monthly Savings",
		"Annual Savings", "Priority Score",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, o := range opts {
		record := []string{
			o.VM.Name, o.VM.ResourceGroup, o.VM.RunName, o.VM.Size, o.VM.PowerState,
			o.Categories, o.SpotStatus,
			formatMoney(o.VM.CostPerVM),
			formatMoney(o.TotalMonthlySavings),
			formatMoney(o.TotalAnnualSavings),
			strconv.Itoa(o.PriorityScore),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCategorySummaryCSV writes the executive category rollup.
func WriteCategorySummaryCSV(w io.Writer, rows []vmopt.CategorySummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Category", "Count", "Monthly Savings", "Annual Savings"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Category,
			strconv.Itoa(r.Count),
			formatMoney(r.MonthlySavings),
			formatMoney(r.AnnualSavings),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteClusterSummaryCSV writes the per-cluster rollup.
func WriteClusterSummaryCSV(w io.Writer, rows []vmopt.ClusterSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Run Name", "VMs", "Candidates", "Monthly Cost", "Monthly Savings", "Savings %"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.RunName,
			strconv.Itoa(r.VMCount),
			strconv.Itoa(r.CandidateCount),
			formatMoney(r.MonthlyCost),
			formatMoney(r.MonthlySavings),
			strconv.FormatFloat(r.SavingsPercent, 'f', 1, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatHours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMoney(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}
