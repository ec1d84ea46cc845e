package engine

import (
	"context"
	"fmt"

	"github.com/iliyamo/showtime-allocator/internal/model"
)

// ListRooms returns every room with its capacity.
func (e *Engine) ListRooms(ctx context.Context) ([]model.Room, error) {
	rooms, err := e.store.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// ListShowings returns showings ordered by start time, each with the
// tickets booked so far.  The slice is freshly read on every call.
func (e *Engine) ListShowings(ctx context.Context, filter model.ShowingFilter) ([]model.ShowingSummary, error) {
	items, err := e.store.ListShowingSummaries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list showings: %w", err)
	}
	return items, nil
}

// GetShowingDetail returns a showing, its room, its occupied window end
// and every reservation held against it.
func (e *Engine) GetShowingDetail(ctx context.Context, id uint64) (model.ShowingDetail, error) {
	summary, err := e.store.GetShowingSummary(ctx, id)
	if err != nil {
		return model.ShowingDetail{}, notFound(err, EntityShowing, id, "get showing")
	}
	reservations, err := e.store.ListReservations(ctx, id)
	if err != nil {
		return model.ShowingDetail{}, fmt.Errorf("list reservations for showing %d: %w", id, err)
	}
	if reservations == nil {
		reservations = []model.Reservation{}
	}
	return model.ShowingDetail{
		ShowingSummary: summary,
		OccupiedUntil:  e.OccupiedWindow(summary.StartsAt, summary.DurationMinutes).End,
		Reservations:   reservations,
	}, nil
}

// GetReservation returns a single reservation.
func (e *Engine) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	r, err := e.store.GetReservation(ctx, id)
	if err != nil {
		return model.Reservation{}, notFound(err, EntityReservation, id, "get reservation")
	}
	return r, nil
}

// ListTransferTargets returns the showings a reservation may be moved
// to: every other showing with the same title.  Capacity is not checked
// here; TransferReservation does that when the move is attempted.
func (e *Engine) ListTransferTargets(ctx context.Context, reservationID uint64) ([]model.ShowingSummary, error) {
	r, err := e.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, notFound(err, EntityReservation, reservationID, "get reservation")
	}
	src, err := e.store.GetShowing(ctx, r.ShowingID)
	if err != nil {
		return nil, notFound(err, EntityShowing, r.ShowingID, "get showing")
	}
	same, err := e.store.ListShowingSummaries(ctx, model.ShowingFilter{Title: src.Title})
	if err != nil {
		return nil, fmt.Errorf("list showings titled %q: %w", src.Title, err)
	}
	out := make([]model.ShowingSummary, 0, len(same))
	for _, s := range same {
		if s.ID != src.ID {
			out = append(out, s)
		}
	}
	return out, nil
}
