package model

import "errors"

// Sentinel errors returned by store implementations when a lookup by
// primary key finds nothing.  The engine translates them into its own
// NotFoundError so callers get the entity and ID back.
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrShowingNotFound     = errors.New("showing not found")
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrDuplicateClaimant is returned when an insert or rename would
	// give a showing two reservations under the same name.
	ErrDuplicateClaimant = errors.New("duplicate claimant in showing")
)
