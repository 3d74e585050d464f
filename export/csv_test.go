package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/usps-dataeng/versionone-dashboard/domain"
	"github.com/usps-dataeng/versionone-dashboard/vmopt"
)

func TestWriteTasksCSV(t *testing.T) {
	sprint := 42
	tasks := []domain.Task{{
		ID:              "T-1",
		Title:           "Build, with comma",
		Owner:           "alice",
		ContractorGroup: "GroupX",
		Status:          "In Progress",
		Sprint:          &sprint,
		EstimatedHours:  10,
		RemainingHours:  4,
		CompletedHours:  6,
		ProgressPercent: 60,
		ProjectHours:    map[string]float64{"EEB-9372": 6},
	}}

	var buf bytes.Buffer
	if err := WriteTasksCSV(&buf, tasks); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	header, row := records[0], records[1]
	if header[0] != "ID" || len(header) != len(row) {
		t.Fatalf("header mismatch: %v vs %v", header, row)
	}
	if row[1] != "Build, with comma" {
		t.Fatalf("comma not quoted: %q", row[1])
	}
	if row[5] != "42" {
		t.Fatalf("sprint = %q", row[5])
	}
	if row[11] != "60" {
		t.Fatalf("progress = %q", row[11])
	}

	col := -1
	for i, h := range header {
		if h == "EEB-9372" {
			col = i
		}
	}
	if col < 0 || row[col] != "6" {
		t.Fatalf("project hours column missing or wrong: %v", row)
	}
}

func TestWriteTasksCSVNullSprint(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTasksCSV(&buf, []domain.Task{{ID: "T-2"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if records[1][5] != "" {
		t.Fatalf("expected empty sprint cell, got %q", records[1][5])
	}
}

func TestWriteOptimizationsCSV(t *testing.T) {
	opts := []domain.Optimization{{
		VM: domain.VM{
			Name:      "vm-01",
			Size:      "STANDARD_D16S_V3",
			CostPerVM: decimal.NewFromFloat(1234.5),
		},
		Categories:          "Spot + Resize",
		SpotStatus:          domain.SpotStatusEligible,
		TotalMonthlySavings: decimal.NewFromInt(500),
		TotalAnnualSavings:  decimal.NewFromInt(6000),
		PriorityScore:       180,
	}}

	var buf bytes.Buffer
	if err := WriteOptimizationsCSV(&buf, opts); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "$1234.50") {
		t.Fatalf("cost not formatted as currency: %s", out)
	}
	if !strings.Contains(out, "Spot + Resize") {
		t.Fatalf("categories missing: %s", out)
	}
}

func TestWriteCategorySummaryCSV(t *testing.T) {
	rows := []vmopt.CategorySummary{{
		Category:       "Spot Conversion Candidates",
		Count:          3,
		MonthlySavings: decimal.NewFromInt(300),
		AnnualSavings:  decimal.NewFromInt(3600),
	}}
	var buf bytes.Buffer
	if err := WriteCategorySummaryCSV(&buf, rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "$3600.00") {
		t.Fatalf("annual savings missing: %s", buf.String())
	}
}
