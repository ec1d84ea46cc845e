package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/showtime-allocator/internal/model"
)

// HasConflict reports the first showing in roomID whose occupied window
// overlaps a candidate starting at start and running durationMinutes.
// A non-zero excludeShowingID is skipped, which lets a showing be
// rescheduled without clashing with itself.  It returns nil when the
// room is free.
func (e *Engine) HasConflict(ctx context.Context, roomID uint64, start time.Time, durationMinutes int, excludeShowingID uint64) (*model.Showing, error) {
	return e.findConflict(ctx, roomID, start.UTC(), durationMinutes, excludeShowingID)
}

func (e *Engine) findConflict(ctx context.Context, roomID uint64, start time.Time, durationMinutes int, excludeShowingID uint64) (*model.Showing, error) {
	showings, err := e.store.ListShowingsByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list showings in room %d: %w", roomID, err)
	}
	candidate := e.OccupiedWindow(start, durationMinutes)
	for i := range showings {
		s := showings[i]
		if excludeShowingID != 0 && s.ID == excludeShowingID {
			continue
		}
		if e.OccupiedWindow(s.StartsAt, s.DurationMinutes).Overlaps(candidate) {
			return &s, nil
		}
	}
	return nil, nil
}
