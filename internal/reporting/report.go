package reporting

import (
	"time"

	"capital-allocator/internal/decision"
	"capital-allocator/internal/domain"
	"capital-allocator/internal/metrics"
	"capital-allocator/internal/pipeline"
	"capital-allocator/internal/tuning"
)

// Report is the monthly tuning report.
type Report struct {
	// Metadata
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	RunDate     time.Time `json:"run_date"`
	WindowFrom  time.Time `json:"window_from"`
	WindowTo    time.Time `json:"window_to"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	Problems    []string  `json:"problems,omitempty"`

	// Versions
	ActiveVersionID    string     `json:"active_version_id"`
	PublishedVersionID string     `json:"published_version_id,omitempty"`
	PublishedStart     *time.Time `json:"published_start,omitempty"`
	DryRun             bool       `json:"dry_run"`
	AllowUnvalidated   bool       `json:"allow_unvalidated"`

	// Data Quality
	DataQuality *pipeline.SufficiencyResult `json:"data_quality,omitempty"`

	// Performance
	TradeCount        int                    `json:"trade_count"`
	Portfolio         metrics.PortfolioStats `json:"portfolio"`
	Breakdown         metrics.Breakdown      `json:"breakdown"`
	ShouldHaveAvoided int                    `json:"should_have_avoided"`

	// Tuning
	Tuning *tuning.Result `json:"tuning,omitempty"`

	// Validation
	Validation *decision.Result `json:"validation,omitempty"`

	// Evaluations, sorted by trade date then trade id
	Evaluations []domain.TradeEvaluation `json:"evaluations,omitempty"`
}

// Published reports whether a version was written.
func (r *Report) Published() bool {
	return r.PublishedVersionID != ""
}
