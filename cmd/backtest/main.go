// Command backtest replays the daily path over a date range against
// ClickHouse prices with paper fills, holding all state in memory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"capital-allocator/internal/app"
	"capital-allocator/internal/backtest"
	"capital-allocator/internal/config"
	"capital-allocator/internal/configversion"
	"capital-allocator/internal/domain"
	"capital-allocator/internal/logging"
	"capital-allocator/internal/orchestrator"
	"capital-allocator/internal/reporting"
	"capital-allocator/internal/storage"
	"capital-allocator/internal/storage/memory"
)

func main() {
	configPath := flag.String("config", os.Getenv("CA_CONFIG"), "Path to YAML configuration")
	from := flag.String("from", "", "First trade date YYYY-MM-DD (required)")
	to := flag.String("to", "", "Last trade date YYYY-MM-DD (default today, UTC)")
	paramsPath := flag.String("params", "", "YAML parameters file (default built-in parameters)")
	tune := flag.Bool("tune", false, "Run monthly tuning at each month boundary")
	allowUnvalidated := flag.Bool("allow-unvalidated", false, "Publish tuned candidates that failed validation")
	reportDir := flag.String("report-dir", "", "Write tuning reports to this directory")
	outputJSON := flag.Bool("json", false, "Output results as JSON")
	flag.Parse()

	if *from == "" {
		fmt.Fprintln(os.Stderr, "backtest: --from is required")
		os.Exit(1)
	}
	os.Exit(run(*configPath, *from, *to, *paramsPath, *reportDir, *tune, *allowUnvalidated, *outputJSON))
}

func run(configPath, fromFlag, toFlag, paramsPath, reportDir string, tune, allowUnvalidated, outputJSON bool) int {
	ctx, cancel := app.SignalContext()
	defer cancel()

	a, err := app.Open(ctx, configPath, "backtest", func(c *config.Config) {
		c.Store = config.StoreMemory
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		return 1
	}
	defer a.Close()

	from, err := app.ParseDate(fromFlag, time.Now)
	if err != nil {
		a.Log.Error("bad flags", logging.Error(err))
		return 1
	}
	to, err := app.ParseDate(toFlag, time.Now)
	if err != nil {
		a.Log.Error("bad flags", logging.Error(err))
		return 1
	}
	if a.ClickHouse == nil {
		a.Log.Error("clickhouse.dsn is required for backtest prices")
		return 1
	}

	params := domain.DefaultParameters()
	if paramsPath != "" {
		if params, _, err = configversion.LoadParams(paramsPath); err != nil {
			a.Log.Error("load parameters", logging.Error(err))
			return 1
		}
	}

	stores, err := memoryStores(ctx, a.Stores.Prices, params, from, to)
	if err != nil {
		a.Log.Error("prepare stores", logging.Error(err))
		return 1
	}

	opts := a.Options()
	opts.Stores = stores
	var reports *reporting.Generator
	if reportDir != "" {
		reports = reporting.NewGenerator(reportDir)
	}

	res, err := backtest.NewRunner(opts, reports).Run(ctx, backtest.Options{
		From:             from,
		To:               to,
		Tune:             tune,
		AllowUnvalidated: allowUnvalidated,
	})
	if err != nil {
		a.Log.Error("backtest failed", logging.Error(err))
		return 1
	}

	if outputJSON {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			a.Log.Error("encode results", logging.Error(err))
			return 1
		}
		fmt.Println(string(out))
	} else {
		printResults(res)
	}
	if len(res.Problems) > 0 {
		return app.ExitCode(orchestrator.StatusCompletedWithProblems)
	}
	return 0
}

// memoryStores copies the prices needed for [from, to] out of src, including
// feature and tuning lookback, and bootstraps params ahead of the range.
func memoryStores(ctx context.Context, src storage.PriceStore, params domain.Parameters, from, to time.Time) (orchestrator.Stores, error) {
	if to.Before(from) {
		return orchestrator.Stores{}, errors.New("--to is before --from")
	}
	start := from.AddDate(0, -params.Tuning.LookbackMonths, -params.Universe.LookbackDays)

	prices := memory.NewPriceStore()
	for _, sym := range params.Universe.Assets {
		bars, err := src.GetRange(ctx, sym, start, to)
		if err != nil {
			return orchestrator.Stores{}, fmt.Errorf("load %s prices: %w", sym, err)
		}
		if len(bars) == 0 {
			continue
		}
		if err := prices.InsertBulk(ctx, bars); err != nil {
			return orchestrator.Stores{}, fmt.Errorf("copy %s prices: %w", sym, err)
		}
	}

	versions := memory.NewConfigVersionStore()
	if _, _, err := configversion.NewManager(versions).Bootstrap(ctx, params, start, "backtest"); err != nil {
		return orchestrator.Stores{}, err
	}

	return orchestrator.Stores{
		Prices:   prices,
		Trades:   memory.NewTradeStore(),
		Signals:  memory.NewSignalStore(),
		Versions: versions,
	}, nil
}

func printResults(res *backtest.Results) {
	fmt.Printf("=== Backtest %s .. %s ===\n", res.From.Format(time.DateOnly), res.To.Format(time.DateOnly))
	fmt.Printf("Sessions:        %d\n", res.Sessions)
	fmt.Printf("Signals:         BUY %d, SELL %d, HOLD %d\n",
		res.Signals[domain.ActionBuy], res.Signals[domain.ActionSell], res.Signals[domain.ActionHold])
	fmt.Printf("Trades:          %d\n", res.TradeCount)
	fmt.Printf("Final value:     %.2f\n", res.FinalValue)
	fmt.Printf("Total return:    %.2f%%\n", res.Portfolio.TotalReturnPct)
	fmt.Printf("Sharpe:          %.3f\n", res.Portfolio.Sharpe)
	fmt.Printf("Max drawdown:    %.2f%%\n", res.Portfolio.MaxDrawdownPct)
	for _, t := range res.Tunings {
		line := fmt.Sprintf("Tuning %s: %s", t.RunDate.Format(time.DateOnly), t.Status)
		if t.Reason != "" {
			line += " (" + t.Reason + ")"
		}
		if t.VersionID != "" {
			line += fmt.Sprintf(", %d changes, version %s", t.Changes, t.VersionID)
		}
		fmt.Println(line)
	}
	for _, p := range res.Problems {
		fmt.Printf("Problem: %s\n", p)
	}
}
