package domain

import "github.com/shopspring/decimal"

// Optimization category names.
const (
	CategorySpot     = "Spot"
	CategoryResize   = "Resize"
	CategoryReserved = "Reserved"
	CategoryNone     = "No Optimization"
)

// Spot status labels used in reports.
const (
	SpotStatusAlready     = "Already Spot"
	SpotStatusEligible    = "Eligible"
	SpotStatusNotEligible = "Not Eligible"
)

// VM is one virtual machine from a resource-graph export, after
// normalization and cost-cohort attachment. Size is upper-cased for joining
// against per-size references.
type VM struct {
	Name          string `json:"name"`
	ResourceGroup string `json:"resourceGroup"`
	ClusterID     string `json:"clusterId"`
	RunName       string `json:"runName"`
	Creator       string `json:"creator"`
	Size          string `json:"vmSize"`
	PowerState    string `json:"powerState"`

	// Utilization metrics, nil when no metrics feed exists.
	AvgCPU    *float64 `json:"avgCpu,omitempty"`
	AvgMemory *float64 `json:"avgMemory,omitempty"`

	// Attached from the size-cohort reference; zero for unmatched sizes.
	// ResizeFlag is nil when the cohort carried no resize recommendation
	// column at all, which switches the analyzer to its naming heuristic.
	SpotEligible bool            `json:"spotEligible"`
	AlreadySpot  bool            `json:"alreadySpot"`
	ResizeFlag   *bool           `json:"resizeFlag,omitempty"`
	CostPerVM    decimal.Decimal `json:"costPerVm"`
	SavingsPerVM decimal.Decimal `json:"savingsPerVm"`

	// Attached from the optional price list; zero when absent.
	OnDemandMonthly decimal.Decimal `json:"onDemandMonthly"`
	SpotMonthly     decimal.Decimal `json:"spotMonthly"`
	ReservedMonthly decimal.Decimal `json:"reservedMonthly"`
}

// SizeCost is one VM-size cohort from the optimization summary export: the
// reference table the cost side joins against, keyed by Size.
type SizeCost struct {
	Size           string          `json:"vmSize"`
	Count          float64         `json:"count"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	MonthlySavings decimal.Decimal `json:"monthlySavings"`
	AnnualSavings  decimal.Decimal `json:"annualSavings"`
	SpotEligible   bool            `json:"spotEligible"`
	AlreadySpot    bool            `json:"alreadySpot"`
	ResizeEligible *bool           `json:"resizeEligible,omitempty"`
}

// CostPerVM is the cohort's monthly cost divided across its members; zero
// when the cohort count is zero.
func (s SizeCost) CostPerVM() decimal.Decimal {
	return perVM(s.TotalCost, s.Count)
}

// SavingsPerVM is the cohort's monthly savings divided across its members.
func (s SizeCost) SavingsPerVM() decimal.Decimal {
	return perVM(s.MonthlySavings, s.Count)
}

func perVM(total decimal.Decimal, count float64) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromFloat(count))
}

// Price is one row of the optional instance price list, keyed by Size, with
// hourly prices already converted to monthly (730 hours).
type Price struct {
	Size            string          `json:"vmSize"`
	OnDemandMonthly decimal.Decimal `json:"onDemandMonthly"`
	ReservedMonthly decimal.Decimal `json:"reservedMonthly"`
	SpotMonthly     decimal.Decimal `json:"spotMonthly"`
}

// Optimization is one analyzed VM with category verdicts and savings. All
// derived fields are pure functions of the embedded VM.
type Optimization struct {
	VM

	SpotCandidate     bool   `json:"spotCandidate"`
	ResizeCandidate   bool   `json:"resizeCandidate"`
	ReservedCandidate bool   `json:"reservedCandidate"`
	CategoryCount     int    `json:"categoryCount"`
	Categories        string `json:"categories"`
	SpotStatus        string `json:"spotStatus"`

	SpotSavings         decimal.Decimal `json:"spotSavings"`
	ResizeSavings       decimal.Decimal `json:"resizeSavings"`
	Reserved1YrSavings  decimal.Decimal `json:"reserved1YrSavings"`
	Reserved3YrSavings  decimal.Decimal `json:"reserved3YrSavings"`
	TotalMonthlySavings decimal.Decimal `json:"totalMonthlySavings"`
	TotalAnnualSavings  decimal.Decimal `json:"totalAnnualSavings"`

	PriorityScore int `json:"priorityScore"`
}
