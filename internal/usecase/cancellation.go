package usecase

import "time"

// CancellationPolicy decides whether cancelling is free. The window starts
// at order placement.
type CancellationPolicy struct {
	Window time.Duration
	Fee    float64
}

// PenaltyFree reports whether a cancellation at now falls inside the free
// window. An unknown placement time is never free.
func (p CancellationPolicy) PenaltyFree(placedAt, now time.Time) bool {
	if placedAt.IsZero() {
		return false
	}
	return now.Sub(placedAt) < p.Window
}
