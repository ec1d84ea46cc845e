package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/showtime-allocator/internal/model"
)

// Machine-readable rejection reasons returned by Reason.
const (
	ReasonBadField             = "bad_field"
	ReasonNotFound             = "not_found"
	ReasonRoomMissing          = "room_missing"
	ReasonOverlap              = "overlap"
	ReasonCapacityFull         = "capacity_full"
	ReasonCapacityOnRoomChange = "capacity_on_room_change"
	ReasonPerPersonCap         = "per_person_cap"
	ReasonTitleMismatch        = "title_mismatch"
)

// Entity names carried by NotFoundError.
const (
	EntityRoom        = "room"
	EntityShowing     = "showing"
	EntityReservation = "reservation"
)

// ValidationError reports a malformed or out-of-range input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a referenced room, showing or reservation that
// does not exist.
type NotFoundError struct {
	Entity string
	ID     uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConflictError reports that a proposed placement overlaps an existing
// showing in the same room.
type ConflictError struct {
	Showing model.Showing
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("overlaps showing %d starting %s for %d minutes",
		e.Showing.ID, e.Showing.StartsAt.Format(time.RFC3339), e.Showing.DurationMinutes)
}

// CapacityError reports that the room cannot hold the tickets.  When
// RoomChange is set the showing was being moved to a smaller room and
// Requested is zero: the existing total no longer fits.
type CapacityError struct {
	Capacity   int
	Reserved   int
	Requested  int
	RoomChange bool
}

func (e *CapacityError) Error() string {
	if e.RoomChange {
		return fmt.Sprintf("room capacity %d is below the %d tickets already reserved", e.Capacity, e.Reserved)
	}
	return fmt.Sprintf("capacity %d exceeded: %d reserved, %d requested", e.Capacity, e.Reserved, e.Requested)
}

// PerPersonLimitError reports that a claimant would end up holding more
// tickets than the per-person cap allows.
type PerPersonLimitError struct {
	Limit     int
	Attempted int
}

func (e *PerPersonLimitError) Error() string {
	return fmt.Sprintf("per-person limit %d exceeded: %d tickets", e.Limit, e.Attempted)
}

// IneligibleTransferError reports a transfer between showings of
// different titles.
type IneligibleTransferError struct {
	FromTitle string
	ToTitle   string
}

func (e *IneligibleTransferError) Error() string {
	return fmt.Sprintf("cannot transfer from %q to %q: titles differ", e.FromTitle, e.ToTitle)
}

// Reason maps an engine error to its machine-readable reason.  It
// returns "" for errors that are not rejections, such as store
// failures.
func Reason(err error) string {
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConflictError
		ca *CapacityError
		pp *PerPersonLimitError
		it *IneligibleTransferError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ReasonBadField
	case errors.As(err, &nf):
		if nf.Entity == EntityRoom {
			return ReasonRoomMissing
		}
		return ReasonNotFound
	case errors.As(err, &ce):
		return ReasonOverlap
	case errors.As(err, &ca):
		if ca.RoomChange {
			return ReasonCapacityOnRoomChange
		}
		return ReasonCapacityFull
	case errors.As(err, &pp):
		return ReasonPerPersonCap
	case errors.As(err, &it):
		return ReasonTitleMismatch
	}
	return ""
}

// notFound turns a store sentinel into a NotFoundError and wraps
// anything else with the operation name.
func notFound(err error, entity string, id uint64, op string) error {
	switch {
	case errors.Is(err, model.ErrRoomNotFound) && entity == EntityRoom,
		errors.Is(err, model.ErrShowingNotFound) && entity == EntityShowing,
		errors.Is(err, model.ErrReservationNotFound) && entity == EntityReservation:
		return &NotFoundError{Entity: entity, ID: id}
	}
	return fmt.Errorf("%s: %w", op, err)
}
