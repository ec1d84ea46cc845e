package engine

import (
	"context"
	"fmt"

	"github.com/iliyamo/showtime-allocator/internal/model"
)

// TransferReservation moves a reservation to another showing of the
// same title.  If the claimant already holds a reservation at the
// destination the two are merged and the source row is deleted;
// otherwise the reservation keeps its ID and is re-pointed at the
// destination.  All checks run before any write, inside one
// transaction, so a failed transfer leaves both showings untouched.
func (e *Engine) TransferReservation(ctx context.Context, id, toShowingID uint64) (Outcome, error) {
	var out Outcome
	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		res, err := e.store.GetReservationForUpdate(ctx, id)
		if err != nil {
			return notFound(err, EntityReservation, id, "lock reservation")
		}
		if res.ShowingID == toShowingID {
			return &ValidationError{Field: "showing_id", Reason: "reservation already belongs to this showing"}
		}

		// lock both showings in ID order so opposing transfers cannot deadlock
		first, second := res.ShowingID, toShowingID
		if second < first {
			first, second = second, first
		}
		locked := make(map[uint64]model.Showing, 2)
		for _, sid := range []uint64{first, second} {
			s, err := e.store.GetShowingForUpdate(ctx, sid)
			if err != nil {
				return notFound(err, EntityShowing, sid, "lock showing")
			}
			locked[sid] = s
		}
		src, dst := locked[res.ShowingID], locked[toShowingID]
		if src.Title != dst.Title {
			return &IneligibleTransferError{FromTitle: src.Title, ToTitle: dst.Title}
		}
		room, err := e.store.GetRoom(ctx, dst.RoomID)
		if err != nil {
			return notFound(err, EntityRoom, dst.RoomID, "get room")
		}

		plan, err := e.resolveClaim(ctx, claim{
			showingID: dst.ID,
			capacity:  room.Capacity,
			name:      res.Name,
			tickets:   res.Tickets,
			self:      res.ID,
		})
		if err != nil {
			return err
		}
		if plan.target != nil {
			out, err = e.absorb(ctx, plan, res.ID)
			out.FromShowingID = src.ID
			return err
		}
		res.ShowingID = dst.ID
		if err := e.store.UpdateReservation(ctx, &res); err != nil {
			return fmt.Errorf("move reservation %d: %w", res.ID, err)
		}
		out = Outcome{Action: ActionMoved, Reservation: res, FromShowingID: src.ID}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}
