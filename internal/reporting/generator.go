// Package reporting renders the monthly tuning report.
package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"capital-allocator/internal/domain"
)

// Generator stamps and writes reports.
type Generator struct {
	dir string
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a generator writing into dir.
func NewGenerator(dir string) *Generator {
	return &Generator{
		dir: dir,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// New starts a report for a run on runDate over [from, to].
func (g *Generator) New(runDate, from, to time.Time) *Report {
	return &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: g.now(),
		RunDate:     domain.Day(runDate),
		WindowFrom:  domain.Day(from),
		WindowTo:    domain.Day(to),
	}
}

// Finalize sorts evaluations and derives the trade and should-have-avoided
// counts from them. A report without evaluations keeps the breakdown's count.
func Finalize(r *Report) {
	if len(r.Evaluations) == 0 {
		r.ShouldHaveAvoided = r.Breakdown.ShouldHaveAvoided
		return
	}
	sort.SliceStable(r.Evaluations, func(i, j int) bool {
		a, b := r.Evaluations[i], r.Evaluations[j]
		if !a.TradeDate.Equal(b.TradeDate) {
			return a.TradeDate.Before(b.TradeDate)
		}
		return a.TradeID < b.TradeID
	})
	r.TradeCount = len(r.Evaluations)
	r.ShouldHaveAvoided = 0
	for _, ev := range r.Evaluations {
		if ev.ShouldHaveAvoided {
			r.ShouldHaveAvoided++
		}
	}
}

// RenderJSON renders report as indented JSON.
func RenderJSON(r *Report) ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(b, '\n'), nil
}

// Write renders the report as Markdown and JSON into the generator's
// directory and returns both paths. Files are named after the run date.
func (g *Generator) Write(r *Report) (mdPath, jsonPath string, err error) {
	Finalize(r)

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create report dir: %w", err)
	}

	base := filepath.Join(g.dir, "tuning-"+r.RunDate.Format("2006-01-02"))
	mdPath, jsonPath = base+".md", base+".json"

	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(r)), 0o644); err != nil {
		return "", "", fmt.Errorf("write markdown report: %w", err)
	}

	b, err := RenderJSON(r)
	if err != nil {
		return "", "", err
	}
	if err := os.WriteFile(jsonPath, b, 0o644); err != nil {
		return "", "", fmt.Errorf("write json report: %w", err)
	}
	return mdPath, jsonPath, nil
}
