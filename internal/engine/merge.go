package engine

import (
	"context"
	"fmt"

	"github.com/iliyamo/showtime-allocator/internal/model"
)

// Action names what a reservation operation did to the store.
type Action string

const (
	ActionCreated Action = "created" // a new reservation row was inserted
	ActionUpdated Action = "updated" // the reservation was changed in place
	ActionMerged  Action = "merged"  // tickets were folded into the claimant's existing reservation
	ActionMoved   Action = "moved"   // the reservation now points at another showing
)

// Outcome describes the result of a successful reservation operation.
// Reservation is the row that holds the tickets afterwards; DeletedID is
// the row a merge removed, or zero.  FromShowingID is only set by
// transfers.
type Outcome struct {
	Action        Action
	Reservation   model.Reservation
	DeletedID     uint64
	FromShowingID uint64
}

// claim is a number of tickets arriving at a showing under a name.
// self is the reservation currently carrying them (zero for a new
// booking); it never counts as a merge partner and is left out of the
// capacity total.
type claim struct {
	showingID uint64
	capacity  int
	name      string
	tickets   int
	self      uint64
}

// mergePlan is the admissible end state for a claim.  When target is
// set the claimant already holds a reservation in the showing and it
// absorbs the tickets; total is what the surviving reservation holds.
type mergePlan struct {
	target *model.Reservation
	total  int
}

// resolveClaim applies the same-claimant merge rule.  (showing, name) is
// the merge key: if someone other than self already holds that key, the
// tickets are summed onto it.  Both the per-person cap and the room
// capacity are checked against the resulting state before anything is
// written.
func (e *Engine) resolveClaim(ctx context.Context, c claim) (mergePlan, error) {
	existing, err := e.store.FindReservationByName(ctx, c.showingID, c.name)
	if err != nil {
		return mergePlan{}, fmt.Errorf("find reservation for %q: %w", c.name, err)
	}
	if existing != nil && existing.ID == c.self {
		existing = nil
	}

	exclude := make([]uint64, 0, 2)
	if c.self != 0 {
		exclude = append(exclude, c.self)
	}
	if err := e.withinCap(c.tickets); err != nil {
		return mergePlan{}, err
	}
	plan := mergePlan{total: c.tickets}
	if existing != nil {
		// compared by subtraction so the sum is only formed once it fits
		if c.tickets > e.limits.PerPersonCap-existing.Tickets {
			return mergePlan{}, &PerPersonLimitError{Limit: e.limits.PerPersonCap, Attempted: existing.Tickets + c.tickets}
		}
		plan.target = existing
		plan.total = existing.Tickets + c.tickets
		exclude = append(exclude, existing.ID)
	}
	if err := e.admit(ctx, c.capacity, c.showingID, plan.total, exclude...); err != nil {
		return mergePlan{}, err
	}
	return plan, nil
}

// absorb writes the merged total onto the plan's target and, when the
// tickets came from another row, deletes that row.
func (e *Engine) absorb(ctx context.Context, plan mergePlan, from uint64) (Outcome, error) {
	if from != 0 {
		if err := e.store.DeleteReservation(ctx, from); err != nil {
			return Outcome{}, fmt.Errorf("delete merged reservation %d: %w", from, err)
		}
	}
	target := *plan.target
	target.Tickets = plan.total
	if err := e.store.UpdateReservation(ctx, &target); err != nil {
		return Outcome{}, fmt.Errorf("update reservation %d: %w", target.ID, err)
	}
	return Outcome{Action: ActionMerged, Reservation: target, DeletedID: from}, nil
}
