package configversion

import (
	"errors"
	"fmt"
	"math"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/ranking"
)

// Validate checks a parameter set before it is used or published. Every
// registered tunable needs a bound with both ends, Min <= Max, a positive
// step and a current value inside the bound. Allocation band inconsistencies
// are returned as warnings.
func Validate(p domain.Parameters) ([]string, error) {
	var errs []error

	if len(p.Universe.Assets) == 0 {
		errs = append(errs, errors.New("universe.assets is empty"))
	}
	if p.Universe.DailyCapital <= 0 {
		errs = append(errs, fmt.Errorf("universe.daily_capital must be positive, got %v", p.Universe.DailyCapital))
	}
	if p.Universe.ReferenceAsset == "" {
		errs = append(errs, errors.New("universe.reference_asset is empty"))
	}

	for _, tn := range domain.Tunables() {
		b, ok := p.Tuning.Bounds[tn.Name]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: missing bound", tn.Name))
			continue
		}
		if b.Min == nil || b.Max == nil {
			errs = append(errs, fmt.Errorf("%s: bound needs both min and max", tn.Name))
			continue
		}
		if *b.Min > *b.Max {
			errs = append(errs, fmt.Errorf("%s: min %v > max %v", tn.Name, *b.Min, *b.Max))
		}
		if b.Step <= 0 || math.IsNaN(b.Step) {
			errs = append(errs, fmt.Errorf("%s: step must be positive, got %v", tn.Name, b.Step))
		}
		if v := tn.Get(&p); v < *b.Min || v > *b.Max || math.IsNaN(v) {
			errs = append(errs, fmt.Errorf("%s: value %v outside [%v, %v]", tn.Name, v, *b.Min, *b.Max))
		}
	}
	for name := range p.Tuning.Bounds {
		if _, ok := domain.LookupTunable(name); !ok {
			errs = append(errs, fmt.Errorf("%s: bound for unknown parameter", name))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return ranking.ValidateBands(p.Allocation), nil
}
