package core

// DateRange bounds a fetch. Zero ends are open; both ends are inclusive.
type DateRange struct {
	From Date
	To   Date
}

// IsZero reports whether the range is unbounded.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Contains reports whether d lies within r.
func (r DateRange) Contains(d Date) bool {
	if !r.From.IsZero() && d.Before(r.From.Time) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To.Time) {
		return false
	}
	return true
}
