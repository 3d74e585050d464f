package vmopt

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/usps-dataeng/versionone-dashboard/domain"
)

// CategorySummary is one row of the executive rollup.
type CategorySummary struct {
	Category       string          `json:"category"`
	Count          int             `json:"count"`
	MonthlySavings decimal.Decimal `json:"monthlySavings"`
	AnnualSavings  decimal.Decimal `json:"annualSavings"`
}

// Summarize rolls optimizations up into the executive category table. Rows
// appear in a fixed order and are always present, zeroed when empty. The
// TOTAL row sums each VM's combined savings once, so overlapping categories
// are not double counted.
func Summarize(opts []domain.Optimization) []CategorySummary {
	total := CategorySummary{Category: "TOTAL OPTIMIZATION POTENTIAL"}
	rows := map[string]*CategorySummary{
		domain.CategorySpot:     {Category: "Spot Conversion Candidates"},
		domain.CategoryResize:   {Category: "Resize Candidates"},
		"Reserved1Yr":           {Category: "Reserved Instance Candidates (1yr)"},
		"Reserved3Yr":           {Category: "Reserved Instance Candidates (3yr)"},
		"Multi":                 {Category: "Multi-Category VMs (2+)"},
	}

	totalVMs := CategorySummary{Category: "Total VMs Analyzed", Count: len(opts)}

	for _, o := range opts {
		if o.SpotCandidate {
			add(rows[domain.CategorySpot], o.SpotSavings)
		}
		if o.ResizeCandidate {
			add(rows[domain.CategoryResize], o.ResizeSavings)
		}
		if o.ReservedCandidate {
			add(rows["Reserved1Yr"], o.Reserved1YrSavings)
			add(rows["Reserved3Yr"], o.Reserved3YrSavings)
		}
		if o.CategoryCount >= 2 {
			add(rows["Multi"], o.TotalMonthlySavings)
		}
		if o.CategoryCount > 0 {
			add(&total, o.TotalMonthlySavings)
		}
	}

	return []CategorySummary{
		totalVMs,
		*rows[domain.CategorySpot],
		*rows[domain.CategoryResize],
		*rows["Reserved1Yr"],
		*rows["Reserved3Yr"],
		*rows["Multi"],
		total,
	}
}

func add(row *CategorySummary, monthly decimal.Decimal) {
	row.Count++
	row.MonthlySavings = row.MonthlySavings.Add(monthly)
	row.AnnualSavings = row.AnnualSavings.Add(monthly.Mul(decimal.NewFromInt(12)))
}

// ClusterSummary aggregates optimizations per cluster run.
type ClusterSummary struct {
	RunName        string          `json:"runName"`
	VMCount        int             `json:"vmCount"`
	CandidateCount int             `json:"candidateCount"`
	MonthlyCost    decimal.Decimal `json:"monthlyCost"`
	MonthlySavings decimal.Decimal `json:"monthlySavings"`
	SavingsPercent float64         `json:"savingsPercent"`
}

// ByCluster groups optimizations by run name and sorts clusters by savings
// descending. VMs without cluster tags land in the "Unknown" bucket. Money
// sums stay in decimals end to end; the percent is display-only.
func ByCluster(opts []domain.Optimization) []ClusterSummary {
	index := map[string]int{}
	var out []ClusterSummary
	for _, o := range opts {
		run := o.VM.RunName
		if run == "" {
			run = domain.UnknownGroup
		}
		i, ok := index[run]
		if !ok {
			i = len(out)
			index[run] = i
			out = append(out, ClusterSummary{RunName: run})
		}
		out[i].VMCount++
		if o.CategoryCount > 0 {
			out[i].CandidateCount++
		}
		out[i].MonthlyCost = out[i].MonthlyCost.Add(o.VM.CostPerVM)
		out[i].MonthlySavings = out[i].MonthlySavings.Add(o.TotalMonthlySavings)
	}
	for i := range out {
		if out[i].MonthlyCost.IsPositive() {
			pct, _ := out[i].MonthlySavings.Div(out[i].MonthlyCost).Mul(decimal.NewFromInt(100)).Round(1).Float64()
			out[i].SavingsPercent = pct
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MonthlySavings.GreaterThan(out[j].MonthlySavings)
	})
	return out
}
