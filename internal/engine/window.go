package engine

import "time"

// Window is the half-open interval [Start, End) during which a showing
// keeps its room busy.
type Window struct {
	Start time.Time
	End   time.Time
}

// OccupiedWindow returns the interval a showing occupies: from its start
// to its nominal end plus the turnaround buffer.  The buffer is only
// appended after the showing, never before it.
func OccupiedWindow(start time.Time, durationMinutes, bufferMinutes int) Window {
	return Window{
		Start: start,
		End:   start.Add(time.Duration(durationMinutes+bufferMinutes) * time.Minute),
	}
}

// Overlaps reports whether two windows share any instant.  Windows that
// only touch (one ends exactly when the other starts) do not overlap.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// OccupiedWindow applies the engine's configured buffer.
func (e *Engine) OccupiedWindow(start time.Time, durationMinutes int) Window {
	return OccupiedWindow(start, durationMinutes, e.limits.BufferMinutes)
}
