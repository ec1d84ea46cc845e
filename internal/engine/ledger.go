package engine

import (
	"context"
	"errors"
	"fmt"
)

// TotalReserved sums the tickets of every reservation for showingID,
// leaving out the reservations listed in excludeIDs.  Callers exclude
// rows that are about to be replaced or merged so they are not counted
// twice.
func (e *Engine) TotalReserved(ctx context.Context, showingID uint64, excludeIDs ...uint64) (int, error) {
	total, err := e.store.SumTickets(ctx, showingID, excludeIDs...)
	if err != nil {
		return 0, fmt.Errorf("sum tickets for showing %d: %w", showingID, err)
	}
	return total, nil
}

// CanAdmit reports whether additionalTickets fit in the showing's
// current room on top of what is already reserved (minus excludeIDs).
func (e *Engine) CanAdmit(ctx context.Context, showingID uint64, additionalTickets int, excludeIDs ...uint64) (bool, error) {
	showing, err := e.store.GetShowing(ctx, showingID)
	if err != nil {
		return false, notFound(err, EntityShowing, showingID, "get showing")
	}
	room, err := e.store.GetRoom(ctx, showing.RoomID)
	if err != nil {
		return false, notFound(err, EntityRoom, showing.RoomID, "get room")
	}
	err = e.admit(ctx, room.Capacity, showingID, additionalTickets, excludeIDs...)
	if err == nil {
		return true, nil
	}
	var ce *CapacityError
	if errors.As(err, &ce) {
		return false, nil
	}
	return false, err
}

// admit returns a CapacityError when requested tickets do not fit.
func (e *Engine) admit(ctx context.Context, capacity int, showingID uint64, requested int, excludeIDs ...uint64) error {
	reserved, err := e.TotalReserved(ctx, showingID, excludeIDs...)
	if err != nil {
		return err
	}
	if requested > capacity-reserved {
		return &CapacityError{Capacity: capacity, Reserved: reserved, Requested: requested}
	}
	return nil
}

// withinCap returns a PerPersonLimitError when one claimant would hold
// more than the per-person cap.
func (e *Engine) withinCap(total int) error {
	if total > e.limits.PerPersonCap {
		return &PerPersonLimitError{Limit: e.limits.PerPersonCap, Attempted: total}
	}
	return nil
}
