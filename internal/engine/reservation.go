package engine

import (
	"context"
	"fmt"

	"github.com/iliyamo/showtime-allocator/internal/model"
)

// CreateOrMergeReservation books tickets for name in a showing.  When
// the name already holds a reservation there, the tickets are added to
// it instead of creating a second row.
func (e *Engine) CreateOrMergeReservation(ctx context.Context, showingID uint64, name string, tickets int) (Outcome, error) {
	name, err := e.validateClaim(name, tickets)
	if err != nil {
		return Outcome{}, err
	}
	var out Outcome
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		showing, err := e.store.GetShowingForUpdate(ctx, showingID)
		if err != nil {
			return notFound(err, EntityShowing, showingID, "lock showing")
		}
		room, err := e.store.GetRoom(ctx, showing.RoomID)
		if err != nil {
			return notFound(err, EntityRoom, showing.RoomID, "get room")
		}
		plan, err := e.resolveClaim(ctx, claim{
			showingID: showing.ID,
			capacity:  room.Capacity,
			name:      name,
			tickets:   tickets,
		})
		if err != nil {
			return err
		}
		if plan.target != nil {
			out, err = e.absorb(ctx, plan, 0)
			return err
		}
		r := model.Reservation{ShowingID: showing.ID, Name: name, Tickets: tickets}
		if err := e.store.CreateReservation(ctx, &r); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
		out = Outcome{Action: ActionCreated, Reservation: r}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// EditReservation changes the claimant name and ticket count of a
// reservation.  Renaming onto another claimant already booked in the
// same showing merges the two: the other reservation takes the summed
// tickets and the edited one is deleted.
func (e *Engine) EditReservation(ctx context.Context, id uint64, name string, tickets int) (Outcome, error) {
	name, err := e.validateClaim(name, tickets)
	if err != nil {
		return Outcome{}, err
	}
	var out Outcome
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		cur, err := e.store.GetReservationForUpdate(ctx, id)
		if err != nil {
			return notFound(err, EntityReservation, id, "lock reservation")
		}
		showing, err := e.store.GetShowingForUpdate(ctx, cur.ShowingID)
		if err != nil {
			return notFound(err, EntityShowing, cur.ShowingID, "lock showing")
		}
		room, err := e.store.GetRoom(ctx, showing.RoomID)
		if err != nil {
			return notFound(err, EntityRoom, showing.RoomID, "get room")
		}
		plan, err := e.resolveClaim(ctx, claim{
			showingID: showing.ID,
			capacity:  room.Capacity,
			name:      name,
			tickets:   tickets,
			self:      cur.ID,
		})
		if err != nil {
			return err
		}
		if plan.target != nil {
			out, err = e.absorb(ctx, plan, cur.ID)
			return err
		}
		cur.Name = name
		cur.Tickets = tickets
		if err := e.store.UpdateReservation(ctx, &cur); err != nil {
			return fmt.Errorf("update reservation %d: %w", cur.ID, err)
		}
		out = Outcome{Action: ActionUpdated, Reservation: cur}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// DeleteReservation removes a reservation, returning its tickets to the
// showing.  It returns the reservation as it was before deletion.
func (e *Engine) DeleteReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	var removed model.Reservation
	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		cur, err := e.store.GetReservationForUpdate(ctx, id)
		if err != nil {
			return notFound(err, EntityReservation, id, "lock reservation")
		}
		if err := e.store.DeleteReservation(ctx, id); err != nil {
			return notFound(err, EntityReservation, id, "delete reservation")
		}
		removed = cur
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return removed, nil
}
