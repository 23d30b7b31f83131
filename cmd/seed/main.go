// Command seed applies the schema and bootstraps the first configuration
// version.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"capital-allocator/internal/app"
	"capital-allocator/internal/config"
	"capital-allocator/internal/configversion"
	"capital-allocator/internal/domain"
	"capital-allocator/internal/logging"
	"capital-allocator/internal/storage/migrations"
)

func main() {
	configPath := flag.String("config", os.Getenv("CA_CONFIG"), "Path to YAML configuration")
	paramsPath := flag.String("params", "", "YAML parameters file (default built-in parameters)")
	start := flag.String("start", "", "Effective date YYYY-MM-DD of the first version (default first of this month)")
	migrate := flag.Bool("migrate", true, "Apply the embedded schema before seeding")
	flag.Parse()

	os.Exit(run(*configPath, *paramsPath, *start, *migrate))
}

func run(configPath, paramsPath, start string, migrate bool) int {
	ctx, cancel := app.SignalContext()
	defer cancel()

	// The ClickHouse database must exist before the app connects to it.
	if migrate {
		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed: %v\n", err)
			return 1
		}
		if cfg.ClickHouse.DSN != "" {
			conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
			if err != nil {
				fmt.Fprintf(os.Stderr, "seed: clickhouse migrations: %v\n", err)
				return 1
			}
			_ = conn.Close()
		}
	}

	a, err := app.Open(ctx, configPath, "seed", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		return 1
	}
	defer a.Close()

	startDate, err := app.ParseDate(start, func() time.Time {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	})
	if err != nil {
		a.Log.Error("bad flags", logging.Error(err))
		return 1
	}

	if migrate && a.Postgres != nil {
		if err := migrations.RunPostgresMigrations(ctx, a.Postgres); err != nil {
			a.Log.Error("postgres migrations", logging.Error(err))
			return 1
		}
		a.Log.Info("postgres schema applied")
	}

	params := domain.DefaultParameters()
	if paramsPath != "" {
		var warnings []string
		params, warnings, err = configversion.LoadParams(paramsPath)
		if err != nil {
			a.Log.Error("load parameters", logging.String("path", paramsPath), logging.Error(err))
			return 1
		}
		for _, w := range warnings {
			a.Log.Warn("parameter warning", logging.String("warning", w))
		}
	}

	v, created, err := configversion.NewManager(a.Stores.Versions).Bootstrap(ctx, params, startDate, "seed")
	if err != nil {
		a.Log.Error("bootstrap config version", logging.Error(err))
		return 1
	}
	if created {
		fmt.Printf("created config version %s effective %s\n", v.ID, v.StartDate.Format(time.DateOnly))
	} else {
		fmt.Printf("config versions exist, open version %s\n", v.ID)
	}
	return 0
}
