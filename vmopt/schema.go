// Package vmopt analyzes Azure VM cohorts for Spot, Resize and Reserved
// Instance opportunities. It is the cost-side instantiation of the same
// normalize, join, derive, aggregate pattern the hours package uses, keyed
// by VM size instead of owner.
package vmopt

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/usps-dataeng/versionone-dashboard/domain"
	"github.com/usps-dataeng/versionone-dashboard/pipeline"
)

// 730 hours/month converts the price list's hourly rates.
var hoursPerMonth = decimal.NewFromInt(730)

// VMSchema normalizes Azure resource-graph rows. The VM name is identity;
// sizes are upper-cased for joining; cluster metadata is pulled out of the
// stringified tags column, with RunName falling back to ClusterId.
func VMSchema() *pipeline.Schema[domain.VM] {
	s := pipeline.NewSchema[domain.VM](nil)
	s.RequireString("name", func(v *domain.VM, val string) { v.Name = val })
	s.String("resourceGroup", "", func(v *domain.VM, val string) { v.ResourceGroup = val })
	s.String("properties_hardwareProfile_vmSize", "", func(v *domain.VM, val string) {
		v.Size = strings.ToUpper(val)
	})
	s.String("tags", "", func(v *domain.VM, val string) {
		tags := ParseTags(val)
		v.ClusterID = tags["ClusterId"]
		v.Creator = tags["Creator"]
		v.RunName = tags["RunName"]
		if v.RunName == "" {
			v.RunName = v.ClusterID
		}
	})
	s.String("properties_instanceView_statuses", "", func(v *domain.VM, val string) {
		switch {
		case val == "":
			v.PowerState = "Unknown"
		case strings.Contains(strings.ToLower(val), "running"):
			v.PowerState = "Running"
		default:
			v.PowerState = "Stopped"
		}
	})
	return s
}

// NormalizeVMs converts raw resource-graph rows into VM records.
func NormalizeVMs(rows []pipeline.Row) ([]domain.VM, []pipeline.ValidationError) {
	return VMSchema().Normalize(rows)
}

// SizeCostSchema normalizes the optimization-summary export: one cohort per
// VM size with currency-formatted cost columns and YES/NO eligibility flags.
func SizeCostSchema() *pipeline.Schema[domain.SizeCost] {
	s := pipeline.NewSchema[domain.SizeCost](nil)
	s.RequireString("VM Size", func(c *domain.SizeCost, v string) { c.Size = strings.ToUpper(v) })
	s.NumberDefault("Count", 1, func(c *domain.SizeCost, v float64) { c.Count = v })
	s.Number("Total Cost", func(c *domain.SizeCost, v float64) { c.TotalCost = decimal.NewFromFloat(v) })
	s.Number("Monthly Savings", func(c *domain.SizeCost, v float64) { c.MonthlySavings = decimal.NewFromFloat(v) })
	s.Number("Annual Savings", func(c *domain.SizeCost, v float64) { c.AnnualSavings = decimal.NewFromFloat(v) })
	s.String("Spot Eligible", "NO", func(c *domain.SizeCost, v string) { c.SpotEligible = isYes(v) })
	s.String("Already Spot", "NO", func(c *domain.SizeCost, v string) { c.AlreadySpot = isYes(v) })
	s.String("Resize Eligible", "", func(c *domain.SizeCost, v string) {
		if v == "" {
			c.ResizeEligible = nil
			return
		}
		flag := isYes(v)
		c.ResizeEligible = &flag
	})
	return s
}

// NormalizeSizeCosts converts raw optimization-summary rows into size-cohort
// reference entries. Zero-count cohorts are dropped; their per-VM economics
// are undefined.
func NormalizeSizeCosts(rows []pipeline.Row) ([]domain.SizeCost, []pipeline.ValidationError) {
	costs, errs := SizeCostSchema().Normalize(rows)
	kept := costs[:0]
	for _, c := range costs {
		if c.Count > 0 {
			kept = append(kept, c)
		}
	}
	return kept, errs
}

// PriceSchema normalizes the instance price list. Hourly price cells look
// like "$0.123 hourly" or "unavailable" and convert to monthly rates.
func PriceSchema() *pipeline.Schema[domain.Price] {
	s := pipeline.NewSchema[domain.Price](nil)
	s.RequireString("API Name", func(p *domain.Price, v string) { p.Size = strings.ToUpper(v) })
	s.String("Linux On Demand cost", "", func(p *domain.Price, v string) { p.OnDemandMonthly = monthlyPrice(v) })
	s.String("Linux Reserved cost", "", func(p *domain.Price, v string) { p.ReservedMonthly = monthlyPrice(v) })
	s.String("Linux Spot cost", "", func(p *domain.Price, v string) { p.SpotMonthly = monthlyPrice(v) })
	return s
}

// NormalizePrices converts raw price-list rows into price reference entries.
func NormalizePrices(rows []pipeline.Row) ([]domain.Price, []pipeline.ValidationError) {
	return PriceSchema().Normalize(rows)
}

// Utilization is one row of the optional metrics feed, keyed by VM name.
type Utilization struct {
	Name      string
	AvgCPU    float64
	AvgMemory float64
}

// UtilizationSchema normalizes the optional CPU/memory metrics feed.
func UtilizationSchema() *pipeline.Schema[Utilization] {
	s := pipeline.NewSchema[Utilization](nil)
	s.RequireString("VM Name", func(u *Utilization, v string) { u.Name = v })
	s.NumberDefault("Avg CPU %", 100, func(u *Utilization, v float64) { u.AvgCPU = v })
	s.NumberDefault("Avg Memory %", 100, func(u *Utilization, v float64) { u.AvgMemory = v })
	return s
}

// NormalizeUtilization converts raw metrics rows into utilization entries.
func NormalizeUtilization(rows []pipeline.Row) ([]Utilization, []pipeline.ValidationError) {
	return UtilizationSchema().Normalize(rows)
}

// JoinSizeCosts attaches cohort economics and eligibility flags to each VM
// via a left join on size. Unmatched VMs keep zero costs and no flags; the
// unmatched count is returned for logging.
func JoinSizeCosts(vms []domain.VM, costs []domain.SizeCost) ([]domain.VM, int) {
	table, _ := pipeline.BuildReference(costs, func(c domain.SizeCost) string { return c.Size })
	return pipeline.Join(vms, table,
		func(v domain.VM) string { return v.Size },
		func(v domain.VM, c domain.SizeCost, ok bool) domain.VM {
			if !ok {
				return v
			}
			v.SpotEligible = c.SpotEligible
			v.AlreadySpot = c.AlreadySpot
			v.ResizeFlag = c.ResizeEligible
			v.CostPerVM = c.CostPerVM()
			v.SavingsPerVM = c.SavingsPerVM()
			return v
		})
}

// JoinPrices attaches real price-list rates where available.
func JoinPrices(vms []domain.VM, prices []domain.Price) ([]domain.VM, int) {
	table, _ := pipeline.BuildReference(prices, func(p domain.Price) string { return p.Size })
	return pipeline.Join(vms, table,
		func(v domain.VM) string { return v.Size },
		func(v domain.VM, p domain.Price, ok bool) domain.VM {
			if !ok {
				return v
			}
			v.OnDemandMonthly = p.OnDemandMonthly
			v.SpotMonthly = p.SpotMonthly
			v.ReservedMonthly = p.ReservedMonthly
			return v
		})
}

// JoinUtilization attaches metrics to VMs by name. VMs without metrics keep
// nil utilization, which the resize predicate treats as "no data".
func JoinUtilization(vms []domain.VM, utils []Utilization) ([]domain.VM, int) {
	table, _ := pipeline.BuildReference(utils, func(u Utilization) string { return u.Name })
	return pipeline.Join(vms, table,
		func(v domain.VM) string { return v.Name },
		func(v domain.VM, u Utilization, ok bool) domain.VM {
			if !ok {
				return v
			}
			cpu, mem := u.AvgCPU, u.AvgMemory
			v.AvgCPU = &cpu
			v.AvgMemory = &mem
			return v
		})
}

func isYes(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "YES")
}

// monthlyPrice parses an hourly price cell to a monthly rate. Unparseable
// cells ("unavailable", blanks) come back zero, which downstream treats as
// "no price data".
func monthlyPrice(cell string) decimal.Decimal {
	s := strings.ToLower(strings.TrimSpace(cell))
	s = strings.ReplaceAll(s, "hourly", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	hourly, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return hourly.Mul(hoursPerMonth)
}
