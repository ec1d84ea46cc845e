package engine

import (
	"context"
	"fmt"

	"github.com/iliyamo/showtime-allocator/internal/model"
)

// CreateShowing schedules a new showing.  The room row is locked for the
// whole transaction so two placements in the same room cannot both pass
// the overlap check.
func (e *Engine) CreateShowing(ctx context.Context, in ShowingInput) (model.Showing, error) {
	f, err := e.validateShowing(in)
	if err != nil {
		return model.Showing{}, err
	}
	var created model.Showing
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := e.store.GetRoomForUpdate(ctx, f.roomID); err != nil {
			return notFound(err, EntityRoom, f.roomID, "lock room")
		}
		conflict, err := e.findConflict(ctx, f.roomID, f.start, f.duration, 0)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &ConflictError{Showing: *conflict}
		}
		created = model.Showing{
			RoomID:          f.roomID,
			Title:           f.title,
			StartsAt:        f.start,
			DurationMinutes: f.duration,
		}
		if err := e.store.CreateShowing(ctx, &created); err != nil {
			return fmt.Errorf("create showing: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Showing{}, err
	}
	return created, nil
}

// UpdateShowing replaces the title, schedule and room of a showing.
// Reservations are never touched: moving to another room is refused
// when the new room cannot hold the tickets already reserved.
func (e *Engine) UpdateShowing(ctx context.Context, id uint64, in ShowingInput) (model.Showing, error) {
	f, err := e.validateShowing(in)
	if err != nil {
		return model.Showing{}, err
	}
	var updated model.Showing
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		cur, err := e.store.GetShowingForUpdate(ctx, id)
		if err != nil {
			return notFound(err, EntityShowing, id, "lock showing")
		}
		room, err := e.store.GetRoomForUpdate(ctx, f.roomID)
		if err != nil {
			return notFound(err, EntityRoom, f.roomID, "lock room")
		}
		conflict, err := e.findConflict(ctx, f.roomID, f.start, f.duration, cur.ID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &ConflictError{Showing: *conflict}
		}
		if room.ID != cur.RoomID {
			reserved, err := e.TotalReserved(ctx, cur.ID)
			if err != nil {
				return err
			}
			if reserved > room.Capacity {
				return &CapacityError{Capacity: room.Capacity, Reserved: reserved, RoomChange: true}
			}
		}
		cur.Title = f.title
		cur.StartsAt = f.start
		cur.DurationMinutes = f.duration
		cur.RoomID = room.ID
		if err := e.store.UpdateShowing(ctx, &cur); err != nil {
			return fmt.Errorf("update showing %d: %w", cur.ID, err)
		}
		updated = cur
		return nil
	})
	if err != nil {
		return model.Showing{}, err
	}
	return updated, nil
}

// DeleteShowing removes a showing and, with it, all of its reservations.
// It returns the showing as it was before deletion.
func (e *Engine) DeleteShowing(ctx context.Context, id uint64) (model.Showing, error) {
	var removed model.Showing
	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		cur, err := e.store.GetShowingForUpdate(ctx, id)
		if err != nil {
			return notFound(err, EntityShowing, id, "lock showing")
		}
		if err := e.store.DeleteShowing(ctx, id); err != nil {
			return notFound(err, EntityShowing, id, "delete showing")
		}
		removed = cur
		return nil
	})
	if err != nil {
		return model.Showing{}, err
	}
	return removed, nil
}
