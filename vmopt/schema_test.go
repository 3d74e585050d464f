package vmopt

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/usps-dataeng/versionone-dashboard/domain"
	"github.com/usps-dataeng/versionone-dashboard/pipeline"
)

func TestParseTags(t *testing.T) {
	raw := `{'ClusterId': 'abc-123', 'RunName': 'nightly-etl', 'Creator': 'svc@corp.com'}`
	tags := ParseTags(raw)
	if tags["ClusterId"] != "abc-123" {
		t.Fatalf("ClusterId = %q", tags["ClusterId"])
	}
	if tags["RunName"] != "nightly-etl" {
		t.Fatalf("RunName = %q", tags["RunName"])
	}
	if got := TagValue(raw, "Creator"); got != "svc@corp.com" {
		t.Fatalf("Creator = %q", got)
	}
	if got := TagValue(raw, "Missing"); got != "" {
		t.Fatalf("missing key = %q", got)
	}
}

func TestParseTagsJSONQuotes(t *testing.T) {
	tags := ParseTags(`{"RunName": "prod-scoring", "team": ""}`)
	if tags["RunName"] != "prod-scoring" {
		t.Fatalf("RunName = %q", tags["RunName"])
	}
	if v, ok := tags["team"]; !ok || v != "" {
		t.Fatalf("empty value not kept: %q %v", v, ok)
	}
}

func TestNormalizeVMs(t *testing.T) {
	rows := []pipeline.Row{
		{
			"name":                                "vm-01",
			"resourceGroup":                       "rg-data",
			"properties_hardwareProfile_vmSize":   "standard_d16s_v3",
			"tags":                                `{'ClusterId': 'c-9', 'Creator': 'eve@corp.com'}`,
			"properties_instanceView_statuses":    "VM running",
		},
		{
			"name": "vm-02",
			"properties_hardwareProfile_vmSize": "Standard_E8s_v3",
			"properties_instanceView_statuses":  "VM deallocated",
		},
	}
	vms, errs := NormalizeVMs(rows)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(vms) != 2 {
		t.Fatalf("got %d vms", len(vms))
	}
	if vms[0].Size != "STANDARD_D16S_V3" {
		t.Fatalf("size not upper-cased: %q", vms[0].Size)
	}
	if vms[0].PowerState != "Running" {
		t.Fatalf("power state = %q", vms[0].PowerState)
	}
	// RunName falls back to ClusterId when the tag is absent.
	if vms[0].RunName != "c-9" {
		t.Fatalf("run name = %q", vms[0].RunName)
	}
	if vms[1].PowerState != "Stopped" {
		t.Fatalf("deallocated power state = %q", vms[1].PowerState)
	}
}

func TestNormalizeVMsMissingStatus(t *testing.T) {
	vms, _ := NormalizeVMs([]pipeline.Row{{"name": "vm-03"}})
	if vms[0].PowerState != "Unknown" {
		t.Fatalf("power state = %q", vms[0].PowerState)
	}
}

func TestNormalizeSizeCosts(t *testing.T) {
	rows := []pipeline.Row{
		{
			"VM Size":         "Standard_D8s_v3",
			"Count":           "4",
			"Total Cost":      "$1,200.00",
			"Monthly Savings": "$400.00",
			"Spot Eligible":   "yes",
			"Already Spot":    "NO",
			"Resize Eligible": "YES",
		},
		{"VM Size": "Standard_B2s", "Count": "0", "Total Cost": "$50.00"},
	}
	costs, errs := NormalizeSizeCosts(rows)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(costs) != 1 {
		t.Fatalf("zero-count cohort kept: %d rows", len(costs))
	}
	c := costs[0]
	if c.Size != "STANDARD_D8S_V3" || !c.SpotEligible || c.AlreadySpot {
		t.Fatalf("cohort = %+v", c)
	}
	if c.ResizeEligible == nil || !*c.ResizeEligible {
		t.Fatalf("resize flag = %v", c.ResizeEligible)
	}
	if !c.CostPerVM().Equal(decimal.NewFromInt(300)) {
		t.Fatalf("cost per vm = %s", c.CostPerVM())
	}
	if !c.SavingsPerVM().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("savings per vm = %s", c.SavingsPerVM())
	}
}

func TestNormalizeSizeCostsNoResizeColumn(t *testing.T) {
	costs, _ := NormalizeSizeCosts([]pipeline.Row{{"VM Size": "Standard_D4s_v3", "Count": "2"}})
	if costs[0].ResizeEligible != nil {
		t.Fatalf("absent resize column should stay nil, got %v", *costs[0].ResizeEligible)
	}
}

func TestNormalizePrices(t *testing.T) {
	rows := []pipeline.Row{
		{
			"API Name":             "Standard_D8s_v3",
			"Linux On Demand cost": "$0.384 hourly",
			"Linux Reserved cost":  "$0.230 hourly",
			"Linux Spot cost":      "unavailable",
		},
	}
	prices, errs := NormalizePrices(rows)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	p := prices[0]
	want := decimal.NewFromFloat(0.384).Mul(decimal.NewFromInt(730))
	if !p.OnDemandMonthly.Equal(want) {
		t.Fatalf("on demand = %s want %s", p.OnDemandMonthly, want)
	}
	if !p.SpotMonthly.IsZero() {
		t.Fatalf("unavailable price = %s", p.SpotMonthly)
	}
}

func TestJoinSizeCosts(t *testing.T) {
	vms := []domain.VM{
		{Name: "vm-01", Size: "STANDARD_D8S_V3"},
		{Name: "vm-02", Size: "STANDARD_B2S"},
	}
	costs := []domain.SizeCost{{
		Size:           "STANDARD_D8S_V3",
		Count:          2,
		TotalCost:      decimal.NewFromInt(600),
		MonthlySavings: decimal.NewFromInt(100),
		SpotEligible:   true,
	}}
	joined, unmatched := JoinSizeCosts(vms, costs)
	if unmatched != 1 {
		t.Fatalf("unmatched = %d", unmatched)
	}
	if !joined[0].SpotEligible || !joined[0].CostPerVM.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("joined vm = %+v", joined[0])
	}
	if !joined[1].CostPerVM.IsZero() {
		t.Fatalf("unmatched vm picked up cost: %s", joined[1].CostPerVM)
	}
}

func TestJoinUtilization(t *testing.T) {
	vms := []domain.VM{{Name: "vm-01"}, {Name: "vm-02"}}
	joined, unmatched := JoinUtilization(vms, []Utilization{{Name: "vm-01", AvgCPU: 12, AvgMemory: 33}})
	if unmatched != 1 {
		t.Fatalf("unmatched = %d", unmatched)
	}
	if joined[0].AvgCPU == nil || *joined[0].AvgCPU != 12 {
		t.Fatalf("cpu = %v", joined[0].AvgCPU)
	}
	if joined[1].AvgCPU != nil {
		t.Fatalf("vm without metrics should keep nil utilization")
	}
}
