package vmopt

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/usps-dataeng/versionone-dashboard/domain"
)

// Utilization thresholds below which a VM is considered oversized.
const (
	resizeMaxCPUPercent    = 40.0
	resizeMaxMemoryPercent = 60.0
)

// Flat discount rates used when the price list has no row for a size.
var (
	resizeSavingsRate   = decimal.NewFromFloat(0.40)
	reserved1YrDiscount = decimal.NewFromFloat(0.40)
	reserved3YrDiscount = decimal.NewFromFloat(0.62)
	reserved3YrUplift   = decimal.NewFromFloat(1.55)
)

// Priority score weights. Multi-category VMs get a flat bonus on top of the
// per-category weight because stacked opportunities compound.
var (
	priorityCategoryWeight = decimal.NewFromInt(30)
	priorityCostWeight     = decimal.NewFromInt(10)
	prioritySavingsWeight  = decimal.NewFromInt(20)
	priorityMultiBonus     = decimal.NewFromInt(25)
	priorityDivisor        = decimal.NewFromInt(100)
)

// Analyze classifies every VM into optimization categories and estimates
// monthly and annual savings per VM. Input order is preserved.
func Analyze(vms []domain.VM) []domain.Optimization {
	out := make([]domain.Optimization, 0, len(vms))
	for _, vm := range vms {
		out = append(out, analyzeVM(vm))
	}
	return out
}

func analyzeVM(vm domain.VM) domain.Optimization {
	opt := domain.Optimization{VM: vm}

	opt.SpotCandidate = vm.SpotEligible && !vm.AlreadySpot
	opt.ResizeCandidate = resizeCandidate(vm)
	opt.ReservedCandidate = reservedCandidate(vm, opt.SpotCandidate)

	var labels []string
	if opt.SpotCandidate {
		labels = append(labels, domain.CategorySpot)
	}
	if opt.ResizeCandidate {
		labels = append(labels, domain.CategoryResize)
	}
	if opt.ReservedCandidate {
		labels = append(labels, domain.CategoryReserved)
	}
	opt.CategoryCount = len(labels)
	if len(labels) == 0 {
		opt.Categories = domain.CategoryNone
	} else {
		opt.Categories = strings.Join(labels, " + ")
	}
	opt.SpotStatus = spotStatus(vm, opt.SpotCandidate)

	applySavings(&opt)
	opt.PriorityScore = priorityScore(opt)
	return opt
}

// resizeCandidate checks signals in order of trustworthiness: measured
// utilization, then the summary export's flag, then a naming heuristic for
// large general-purpose and memory-optimized sizes.
func resizeCandidate(vm domain.VM) bool {
	if vm.AvgCPU != nil && vm.AvgMemory != nil {
		return *vm.AvgCPU < resizeMaxCPUPercent || *vm.AvgMemory < resizeMaxMemoryPercent
	}
	if vm.ResizeFlag != nil {
		return *vm.ResizeFlag
	}
	return largeSizeName(vm.Size)
}

// largeSizeName flags sizes with 16 or more cores in the D or E families,
// e.g. STANDARD_D16S_V3 or STANDARD_E32S_V3.
func largeSizeName(size string) bool {
	up := strings.ToUpper(size)
	family := strings.ContainsAny(upAfterStandard(up), "DE")
	if !family {
		return false
	}
	cores := firstNumber(up)
	return cores >= 16
}

func upAfterStandard(size string) string {
	const prefix = "STANDARD_"
	if rest, ok := strings.CutPrefix(size, prefix); ok && rest != "" {
		return rest[:1]
	}
	if size == "" {
		return ""
	}
	return size[:1]
}

func firstNumber(s string) int {
	n, seen := 0, false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			seen = true
			continue
		}
		if seen {
			break
		}
	}
	return n
}

func reservedCandidate(vm domain.VM, spotCandidate bool) bool {
	if spotCandidate {
		return false
	}
	if strings.EqualFold(vm.PowerState, "Running") {
		return true
	}
	return strings.Contains(strings.ToLower(vm.RunName), "prod")
}

func spotStatus(vm domain.VM, candidate bool) string {
	switch {
	case vm.AlreadySpot:
		return domain.SpotStatusAlready
	case candidate:
		return domain.SpotStatusEligible
	default:
		return domain.SpotStatusNotEligible
	}
}

// applySavings computes per-category monthly savings. Real price-list rates
// are preferred; the flat discount rates cover sizes the list misses. Spot
// and reserved exclude each other, so the total takes whichever is larger
// and adds resize on top.
func applySavings(opt *domain.Optimization) {
	vm := opt.VM

	if opt.SpotCandidate {
		if vm.OnDemandMonthly.IsPositive() && vm.SpotMonthly.IsPositive() {
			opt.SpotSavings = vm.OnDemandMonthly.Sub(vm.SpotMonthly)
		} else {
			opt.SpotSavings = vm.SavingsPerVM
		}
	}
	if opt.ResizeCandidate {
		opt.ResizeSavings = vm.CostPerVM.Mul(resizeSavingsRate)
	}
	if opt.ReservedCandidate {
		if vm.OnDemandMonthly.IsPositive() && vm.ReservedMonthly.IsPositive() {
			opt.Reserved1YrSavings = vm.OnDemandMonthly.Sub(vm.ReservedMonthly)
			opt.Reserved3YrSavings = opt.Reserved1YrSavings.Mul(reserved3YrUplift)
		} else {
			opt.Reserved1YrSavings = vm.CostPerVM.Mul(reserved1YrDiscount)
			opt.Reserved3YrSavings = vm.CostPerVM.Mul(reserved3YrDiscount)
		}
	}

	best := opt.SpotSavings
	if opt.Reserved3YrSavings.GreaterThan(best) {
		best = opt.Reserved3YrSavings
	}
	opt.TotalMonthlySavings = best.Add(opt.ResizeSavings)
	opt.TotalAnnualSavings = opt.TotalMonthlySavings.Mul(decimal.NewFromInt(12))
}

// priorityScore ranks VMs for review. Higher means act sooner.
func priorityScore(opt domain.Optimization) int {
	score := priorityCategoryWeight.Mul(decimal.NewFromInt(int64(opt.CategoryCount)))
	score = score.Add(opt.VM.CostPerVM.Div(priorityDivisor).Mul(priorityCostWeight))
	score = score.Add(opt.TotalMonthlySavings.Div(priorityDivisor).Mul(prioritySavingsWeight))
	if opt.CategoryCount >= 2 {
		score = score.Add(priorityMultiBonus)
	}
	return int(score.Round(0).IntPart())
}

// Candidates filters to VMs with at least one optimization category.
func Candidates(opts []domain.Optimization) []domain.Optimization {
	var out []domain.Optimization
	for _, o := range opts {
		if o.CategoryCount > 0 {
			out = append(out, o)
		}
	}
	return out
}

// HighPriority filters to candidates at or above the score threshold.
func HighPriority(opts []domain.Optimization, threshold int) []domain.Optimization {
	var out []domain.Optimization
	for _, o := range opts {
		if o.CategoryCount > 0 && o.PriorityScore >= threshold {
			out = append(out, o)
		}
	}
	return out
}

// SortByPriority orders by score descending, then annual savings descending.
// The sort is stable so equal VMs keep input order.
func SortByPriority(opts []domain.Optimization) {
	sort.SliceStable(opts, func(i, j int) bool {
		if opts[i].PriorityScore != opts[j].PriorityScore {
			return opts[i].PriorityScore > opts[j].PriorityScore
		}
		return opts[i].TotalAnnualSavings.GreaterThan(opts[j].TotalAnnualSavings)
	})
}
