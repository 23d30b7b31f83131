package tuning

import (
	"fmt"
	"math"

	"capital-allocator/internal/domain"
)

// Change records one parameter adjustment.
type Change struct {
	Param string  `json:"param"`
	Old   float64 `json:"old"`
	New   float64 `json:"new"`
	Rule  string  `json:"rule"`
}

// Result is the tuner output. Params is a deep copy of the input with the
// changes applied.
type Result struct {
	Params  domain.Parameters `json:"-"`
	Changes []Change          `json:"changes"`
	Fired   []string          `json:"fired"`   // rule names, in order, including clamped no-ops
	Skipped []string          `json:"skipped"` // loosening rules that matched while disabled
}

// Tuner applies an ordered rule list.
type Tuner struct {
	rules []Rule
}

// NewTuner creates a tuner. No rules means DefaultRules.
func NewTuner(rules ...Rule) *Tuner {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Tuner{rules: rules}
}

// Rules returns the tuner's rule list.
func (t *Tuner) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Tune evaluates every rule against f and applies the fired ones to a copy of
// f.Current. Each nudge is clamped to the parameter's bounds. Rules naming an
// unregistered parameter or one without a bound return an error.
func (t *Tuner) Tune(f Facts) (Result, error) {
	res := Result{Params: f.Current.Clone()}
	bounds := f.Current.Tuning.Bounds

	for _, r := range t.rules {
		tn, ok := domain.LookupTunable(r.Param)
		if !ok {
			return Result{}, fmt.Errorf("rule %s: unknown parameter %s", r.Name, r.Param)
		}
		b, ok := bounds[r.Param]
		if !ok || b.Step <= 0 {
			return Result{}, fmt.Errorf("rule %s: no usable bound for %s", r.Name, r.Param)
		}
		if !r.When(f) {
			continue
		}
		if r.Loosening && !f.Current.Tuning.EnableSymmetricLoosening {
			res.Skipped = append(res.Skipped, r.Name+":"+r.Param)
			continue
		}
		res.Fired = append(res.Fired, r.Name+":"+r.Param)

		old := tn.Get(&res.Params)
		next := roundStep(b.Clamp(old + float64(r.Direction)*b.Step*r.scale()))
		if next == old {
			continue
		}
		tn.Set(&res.Params, next)
		res.Changes = append(res.Changes, Change{Param: r.Param, Old: old, New: next, Rule: r.Name})
	}
	return res, nil
}

// roundStep drops float noise from repeated step additions.
func roundStep(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
