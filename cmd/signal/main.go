// Command signal generates, stores and publishes the daily signal.
package main

import (
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"capital-allocator/internal/app"
	"capital-allocator/internal/logging"
	"capital-allocator/internal/orchestrator"
)

func main() {
	configPath := flag.String("config", os.Getenv("CA_CONFIG"), "Path to YAML configuration")
	date := flag.String("date", "", "Trade date YYYY-MM-DD (default today, UTC)")
	replace := flag.Bool("replace", false, "Replace a stored signal whose content differs")
	flag.Parse()

	os.Exit(run(*configPath, *date, *replace))
}

func run(configPath, date string, replace bool) int {
	ctx, cancel := app.SignalContext()
	defer cancel()

	a, err := app.Open(ctx, configPath, "signal", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signal: %v\n", err)
		return 1
	}
	defer a.Close()

	tradeDate, err := app.ParseDate(date, time.Now)
	if err != nil {
		a.Log.Error("bad flags", logging.Error(err))
		return 1
	}

	pub, err := a.Publisher()
	if err != nil {
		a.Log.Error("create publisher", logging.Error(err))
		return 1
	}

	res := orchestrator.NewDailyRunner(a.Options(), pub).Run(ctx, orchestrator.DailyOptions{
		Date:    tradeDate,
		Replace: replace,
	})

	if res.Signal != nil {
		s := res.Signal
		fmt.Printf("%s %s %s regime=%.4f risk=%.1f confidence=%.2f version=%s\n",
			s.TradeDate.Format(time.DateOnly), s.Action, s.SignalType,
			s.RegimeScore, s.RiskScore, s.Confidence, res.VersionID)
		for _, sym := range slices.Sorted(maps.Keys(s.Allocations)) {
			fmt.Printf("  %s %s\n", sym, s.Allocations[sym].StringFixed(2))
		}
	}
	fmt.Printf("status=%s", res.Status)
	if res.Reason != "" {
		fmt.Printf(" reason=%q", res.Reason)
	}
	fmt.Println()
	for _, p := range res.Problems {
		fmt.Printf("  problem: %s\n", p)
	}
	return app.ExitCode(res.Status)
}
