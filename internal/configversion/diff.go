package configversion

import "capital-allocator/internal/domain"

// ParamDiff is one tunable whose value differs between two parameter sets.
type ParamDiff struct {
	Param string  `json:"param"`
	Old   float64 `json:"old"`
	New   float64 `json:"new"`
}

// Diff lists the tunables that differ from prev to next, in tunable order.
func Diff(prev, next domain.Parameters) []ParamDiff {
	var out []ParamDiff
	for _, tn := range domain.Tunables() {
		o, n := tn.Get(&prev), tn.Get(&next)
		if o != n {
			out = append(out, ParamDiff{Param: tn.Name, Old: o, New: n})
		}
	}
	return out
}
