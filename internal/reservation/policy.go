package reservation

import "time"

// DefaultEditWindow is the minimum lead time before start for changes.
const DefaultEditWindow = 2 * time.Hour

// EditWindowPolicy gates modification and cancellation by how far away the
// reservation's start is.
type EditWindowPolicy struct {
	Window time.Duration
}

func NewEditWindowPolicy(window time.Duration) EditWindowPolicy {
	if window <= 0 {
		window = DefaultEditWindow
	}
	return EditWindowPolicy{Window: window}
}

// CanEdit reports whether r starts strictly more than Window after now.
// Dates and times are read in now's location. Unparsable data denies the edit.
func (p EditWindowPolicy) CanEdit(r *Reservation, now time.Time) bool {
	if r == nil {
		return false
	}
	start, err := r.StartInstant(now.Location())
	if err != nil {
		return false
	}
	return start.Sub(now) > p.Window
}
