// Command tune runs the monthly parameter tuning and publishes the next
// month's configuration version.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"capital-allocator/internal/app"
	"capital-allocator/internal/config"
	"capital-allocator/internal/logging"
	"capital-allocator/internal/orchestrator"
	"capital-allocator/internal/reporting"
)

func main() {
	configPath := flag.String("config", os.Getenv("CA_CONFIG"), "Path to YAML configuration")
	date := flag.String("date", "", "Run date YYYY-MM-DD (default today, UTC)")
	allowUnvalidated := flag.Bool("allow-unvalidated", false, "Publish a candidate that failed validation")
	dryRun := flag.Bool("dry-run", false, "Evaluate and report without publishing")
	reportDir := flag.String("report-dir", "", "Report output directory (overrides reports.dir)")
	flag.Parse()

	os.Exit(run(*configPath, *date, *reportDir, orchestrator.TuningOptions{
		AllowUnvalidated: *allowUnvalidated,
		DryRun:           *dryRun,
	}))
}

func run(configPath, date, reportDir string, opts orchestrator.TuningOptions) int {
	ctx, cancel := app.SignalContext()
	defer cancel()

	a, err := app.Open(ctx, configPath, "tune", func(c *config.Config) {
		if reportDir != "" {
			c.Reports.Dir = reportDir
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tune: %v\n", err)
		return 1
	}
	defer a.Close()

	opts.Date, err = app.ParseDate(date, time.Now)
	if err != nil {
		a.Log.Error("bad flags", logging.Error(err))
		return 1
	}

	runner := orchestrator.NewTuningRunner(a.Options(), nil, reporting.NewGenerator(a.Config.Reports.Dir))
	res := runner.Run(ctx, opts)

	fmt.Printf("status=%s", res.Status)
	if res.Reason != "" {
		fmt.Printf(" reason=%q", res.Reason)
	}
	fmt.Println()
	for _, c := range res.Changes {
		fmt.Printf("  %s: %g -> %g (%s)\n", c.Param, c.Old, c.New, c.Rule)
	}
	if res.Validation != nil {
		fmt.Printf("  validation: %s\n", res.Validation.Verdict)
	}
	if res.Version != nil {
		fmt.Printf("  published %s effective %s\n", res.Version.ID, res.Version.StartDate.Format(time.DateOnly))
	}
	if res.MDPath != "" {
		fmt.Printf("  report: %s\n", res.MDPath)
	}
	for _, p := range res.Problems {
		fmt.Printf("  problem: %s\n", p)
	}
	return app.ExitCode(res.Status)
}
