// Command report prints the configuration version history and the signal
// tally for a date range as Markdown.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"capital-allocator/internal/app"
	"capital-allocator/internal/configversion"
	"capital-allocator/internal/logging"
	"capital-allocator/internal/reporting"
)

func main() {
	configPath := flag.String("config", os.Getenv("CA_CONFIG"), "Path to YAML configuration")
	from := flag.String("from", "", "First signal date YYYY-MM-DD (default 30 days before --to)")
	to := flag.String("to", "", "Last signal date YYYY-MM-DD (default today, UTC)")
	output := flag.String("output", "", "Write Markdown to this file instead of stdout")
	flag.Parse()

	os.Exit(run(*configPath, *from, *to, *output))
}

func run(configPath, fromFlag, toFlag, output string) int {
	ctx, cancel := app.SignalContext()
	defer cancel()

	a, err := app.Open(ctx, configPath, "report", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		return 1
	}
	defer a.Close()

	to, err := app.ParseDate(toFlag, time.Now)
	if err != nil {
		a.Log.Error("bad flags", logging.Error(err))
		return 1
	}
	from, err := app.ParseDate(fromFlag, func() time.Time { return to.AddDate(0, 0, -30) })
	if err != nil {
		a.Log.Error("bad flags", logging.Error(err))
		return 1
	}

	versions, err := configversion.NewManager(a.Stores.Versions).History(ctx)
	if err != nil {
		a.Log.Error("load config versions", logging.Error(err))
		return 1
	}
	signals, err := a.Stores.Signals.GetRange(ctx, from, to)
	if err != nil {
		a.Log.Error("load signals", logging.Error(err))
		return 1
	}

	md := reporting.RenderHistory(versions, signals)
	if output == "" {
		fmt.Print(md)
		return 0
	}
	if err := os.WriteFile(output, []byte(md), 0o644); err != nil {
		a.Log.Error("write report", logging.String("path", output), logging.Error(err))
		return 1
	}
	a.Log.Info("report written", logging.String("path", output))
	return 0
}
