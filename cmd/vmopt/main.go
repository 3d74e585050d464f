// vmopt analyzes Azure VM inventory exports for cost optimization
// opportunities.
//
// Usage:
//   vmopt analyze --vms vms.csv [--sizes sizes.csv] [--prices prices.csv] [--metrics metrics.csv]
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/usps-dataeng/versionone-dashboard/domain"
	"github.com/usps-dataeng/versionone-dashboard/export"
	"github.com/usps-dataeng/versionone-dashboard/ingest"
	"github.com/usps-dataeng/versionone-dashboard/pipeline"
	"github.com/usps-dataeng/versionone-dashboard/vmopt"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
)

func main() {
	app := &cli.App{
		Name:  "vmopt",
		Usage: "VM cost optimization analyzer for Azure inventory exports",
		Commands: []*cli.Command{
			analyzeCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze a VM inventory export and report savings opportunities",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "vms",
				Usage:    "Path to the VM inventory CSV",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "sizes",
				Usage: "Path to the size-cohort cost summary CSV",
			},
			&cli.StringFlag{
				Name:  "prices",
				Usage: "Path to the retail price list CSV",
			},
			&cli.StringFlag{
				Name:  "metrics",
				Usage: "Path to the per-VM utilization metrics CSV",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Directory to write CSV reports into",
			},
			&cli.IntFlag{
				Name:  "min-priority",
				Value: 100,
				Usage: "Priority score cutoff for the high-priority list",
			},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	vmRows, err := readRows(c.String("vms"))
	if err != nil {
		return fmt.Errorf("read vms: %w", err)
	}
	vms, rejected := vmopt.NormalizeVMs(vmRows)
	for _, ve := range rejected {
		yellow.Fprintf(os.Stderr, "skipping row %d: %s\n", ve.Row, ve.Reason)
	}

	if path := c.String("sizes"); path != "" {
		rows, err := readRows(path)
		if err != nil {
			return fmt.Errorf("read sizes: %w", err)
		}
		costs, bad := vmopt.NormalizeSizeCosts(rows)
		for _, ve := range bad {
			yellow.Fprintf(os.Stderr, "skipping size row %d: %s\n", ve.Row, ve.Reason)
		}
		var unmatched int
		vms, unmatched = vmopt.JoinSizeCosts(vms, costs)
		if unmatched > 0 {
			yellow.Fprintf(os.Stderr, "%d VMs have no matching size cohort\n", unmatched)
		}
	}
	if path := c.String("prices"); path != "" {
		rows, err := readRows(path)
		if err != nil {
			return fmt.Errorf("read prices: %w", err)
		}
		prices, _ := vmopt.NormalizePrices(rows)
		vms, _ = vmopt.JoinPrices(vms, prices)
	}
	if path := c.String("metrics"); path != "" {
		rows, err := readRows(path)
		if err != nil {
			return fmt.Errorf("read metrics: %w", err)
		}
		utils, _ := vmopt.NormalizeUtilization(rows)
		vms, _ = vmopt.JoinUtilization(vms, utils)
	}

	opts := vmopt.Analyze(vms)
	candidates := vmopt.Candidates(opts)
	vmopt.SortByPriority(candidates)
	summary := vmopt.Summarize(opts)
	clusters := vmopt.ByCluster(opts)

	renderSummary(summary)
	renderClusters(clusters)
	renderCandidates(vmopt.HighPriority(candidates, c.Int("min-priority")))
	green.Printf("\nAnalyzed %d VMs, %d optimization candidates\n", len(opts), len(candidates))

	if dir := c.String("out"); dir != "" {
		if err := writeReports(dir, candidates, summary, clusters); err != nil {
			return err
		}
		fmt.Printf("Reports written to %s\n", dir)
	}
	return nil
}

func readRows(path string) ([]pipeline.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ingest.ReadCSV(f)
}

func renderSummary(rows []vmopt.CategorySummary) {
	fmt.Println()
	bold.Println("OPTIMIZATION SUMMARY")

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Category", "Count", "Monthly Savings", "Annual Savings")
	for _, r := range rows {
		_ = table.Append(
			r.Category,
			fmt.Sprintf("%d", r.Count),
			"$"+r.MonthlySavings.StringFixed(2),
			"$"+r.AnnualSavings.StringFixed(2),
		)
	}
	_ = table.Render()
}

func renderClusters(rows []vmopt.ClusterSummary) {
	if len(rows) == 0 {
		return
	}
	fmt.Println()
	bold.Println("SAVINGS BY CLUSTER")

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Cluster", "VMs", "Candidates", "Monthly Cost", "Monthly Savings", "Savings %")
	for _, r := range rows {
		_ = table.Append(
			r.RunName,
			fmt.Sprintf("%d", r.VMCount),
			fmt.Sprintf("%d", r.CandidateCount),
			"$"+r.MonthlyCost.StringFixed(2),
			"$"+r.MonthlySavings.StringFixed(2),
			fmt.Sprintf("%.1f%%", r.SavingsPercent),
		)
	}
	_ = table.Render()
}

func renderCandidates(rows []domain.Optimization) {
	if len(rows) == 0 {
		return
	}
	fmt.Println()
	bold.Println("HIGH PRIORITY CANDIDATES")

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("VM", "Size", "Cluster", "Categories", "Monthly Savings", "Annual Savings", "Priority")
	for _, r := range rows {
		cluster := r.VM.RunName
		if cluster == "" {
			cluster = domain.UnknownGroup
		}
		_ = table.Append(
			r.VM.Name,
			r.VM.Size,
			cluster,
			r.Categories,
			"$"+r.TotalMonthlySavings.StringFixed(2),
			"$"+r.TotalAnnualSavings.StringFixed(2),
			fmt.Sprintf("%d", r.PriorityScore),
		)
	}
	_ = table.Render()
}

func writeReports(dir string, candidates []domain.Optimization, summary []vmopt.CategorySummary, clusters []vmopt.ClusterSummary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := []struct {
		name  string
		write func(f *os.File) error
	}{
		{"optimization_candidates.csv", func(f *os.File) error { return export.WriteOptimizationsCSV(f, candidates) }},
		{"category_summary.csv", func(f *os.File) error { return export.WriteCategorySummaryCSV(f, summary) }},
		{"cluster_summary.csv", func(f *os.File) error { return export.WriteClusterSummaryCSV(f, clusters) }},
	}
	for _, spec := range files {
		f, err := os.Create(filepath.Join(dir, spec.name))
		if err != nil {
			return fmt.Errorf("create %s: %w", spec.name, err)
		}
		if err := spec.write(f); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", spec.name, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", spec.name, err)
		}
	}
	return nil
}
