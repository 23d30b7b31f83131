// Command server runs the daily path every weekday and the monthly tuning on
// the last day of each month, serving health, status and Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"capital-allocator/internal/app"
	"capital-allocator/internal/domain"
	"capital-allocator/internal/logging"
	"capital-allocator/internal/orchestrator"
	"capital-allocator/internal/reporting"
)

// Server schedules both runners.
type Server struct {
	daily   *orchestrator.DailyRunner
	tuning  *orchestrator.TuningRunner
	log     *logging.Logger
	dailyAt time.Duration // offset from midnight UTC
	tuneAt  time.Duration
	now     func() time.Time

	mu      sync.Mutex
	started time.Time
	state   map[string]*jobState
}

type jobState struct {
	LastDate   time.Time           `json:"last_date"`
	LastStatus orchestrator.Status `json:"last_status,omitempty"`
	LastReason string              `json:"last_reason,omitempty"`
	Runs       int                 `json:"runs"`
	Running    bool                `json:"running"`
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Status  string               `json:"status"`
	Uptime  string               `json:"uptime"`
	Started time.Time            `json:"started"`
	Jobs    map[string]*jobState `json:"jobs"`
}

func main() {
	configPath := flag.String("config", os.Getenv("CA_CONFIG"), "Path to YAML configuration")
	dailyAt := flag.Duration("daily-at", 12*time.Hour, "Daily run time as offset from midnight UTC")
	tuneAt := flag.Duration("tune-at", 22*time.Hour, "Tuning run time on the last day of the month, offset from midnight UTC")
	checkInterval := flag.Duration("check-interval", time.Minute, "Schedule check interval")
	addr := flag.String("metrics-addr", ":9090", "HTTP address for /health, /status and /metrics")
	flag.Parse()

	ctx, cancel := app.SignalContext()
	defer cancel()

	a, err := app.Open(ctx, *configPath, "server", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	pub, err := a.Publisher()
	if err != nil {
		a.Log.Error("create publisher", logging.Error(err))
		os.Exit(1)
	}

	s := &Server{
		daily:   orchestrator.NewDailyRunner(a.Options(), pub),
		tuning:  orchestrator.NewTuningRunner(a.Options(), nil, reporting.NewGenerator(a.Config.Reports.Dir)),
		log:     a.Log,
		dailyAt: *dailyAt,
		tuneAt:  *tuneAt,
		now:     func() time.Time { return time.Now().UTC() },
		started: time.Now().UTC(),
		state:   map[string]*jobState{"daily": {}, "tuning": {}},
	}

	srv := &http.Server{Addr: *addr, Handler: s.routes(a.Metrics.Handler()), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		a.Log.Info("http server listening", logging.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Error("http server", logging.Error(err))
			cancel()
		}
	}()

	s.Run(ctx, *checkInterval)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Log.Warn("http shutdown", logging.Error(err))
	}
	a.Log.Info("shutdown complete")
}

// Run checks the schedule every interval until ctx is cancelled.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	s.log.Info("scheduler started",
		logging.Duration("daily_at_ms", s.dailyAt),
		logging.Duration("tune_at_ms", s.tuneAt))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) tick(ctx context.Context) {
	now := s.now()
	if dueDaily(now, s.dailyAt, s.last("daily")) {
		s.runJob("daily", domain.Day(now), func() orchestrator.Result {
			return s.daily.Run(ctx, orchestrator.DailyOptions{Date: now}).Result
		})
	}
	if dueTuning(now, s.tuneAt, s.last("tuning")) {
		s.runJob("tuning", domain.Day(now), func() orchestrator.Result {
			return s.tuning.Run(ctx, orchestrator.TuningOptions{Date: now}).Result
		})
	}
}

func (s *Server) last(job string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[job].LastDate
}

// runJob runs fn once for date. A failed run is not retried the same day.
func (s *Server) runJob(job string, date time.Time, fn func() orchestrator.Result) {
	s.mu.Lock()
	st := s.state[job]
	if st.Running {
		s.mu.Unlock()
		return
	}
	st.Running = true
	s.mu.Unlock()

	res := fn()

	s.mu.Lock()
	st.Running = false
	st.LastDate = date
	st.LastStatus = res.Status
	st.LastReason = res.Reason
	st.Runs++
	s.mu.Unlock()
}

func (s *Server) routes(metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	jobs := make(map[string]*jobState, len(s.state))
	for k, v := range s.state {
		cp := *v
		jobs[k] = &cp
	}
	s.mu.Unlock()

	resp := StatusResponse{
		Status:  "running",
		Uptime:  s.now().Sub(s.started).Truncate(time.Second).String(),
		Started: s.started,
		Jobs:    jobs,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// dueDaily reports whether the daily path should run at now: a weekday, at or
// after the configured time, not yet run today.
func dueDaily(now time.Time, at time.Duration, last time.Time) bool {
	today := domain.Day(now)
	if wd := today.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return now.Sub(today) >= at && !last.Equal(today)
}

// dueTuning reports whether the monthly path should run at now: the last
// calendar day of the month, at or after the configured time, not yet run.
func dueTuning(now time.Time, at time.Duration, last time.Time) bool {
	today := domain.Day(now)
	if today.AddDate(0, 0, 1).Day() != 1 {
		return false
	}
	return now.Sub(today) >= at && !last.Equal(today)
}
