package domain

import "time"

// ConfigVersion is an immutable, time-boxed parameter set.
// Corresponds to config_versions table. Never mutated after insert except for
// closing EndDate when superseded.
type ConfigVersion struct {
	ID        string // uuid
	StartDate time.Time
	EndDate   *time.Time // nil while active
	CreatedBy string
	Notes     string
	CreatedAt time.Time
	Params    Parameters
}

// ActiveAt reports whether the version covers date d (inclusive on both ends).
func (v *ConfigVersion) ActiveAt(d time.Time) bool {
	d = Day(d)
	if Day(v.StartDate).After(d) {
		return false
	}
	return v.EndDate == nil || !Day(*v.EndDate).Before(d)
}

// IsOpen reports whether the version has no end date.
func (v *ConfigVersion) IsOpen() bool {
	return v.EndDate == nil
}
