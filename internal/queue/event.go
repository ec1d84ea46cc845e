// Package queue carries domain events over RabbitMQ: payloads, the
// publisher used by the HTTP layer and the audit consumer that appends
// every event to logs/audit.log.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/showtime-allocator/internal/model"
)

// Event types.
const (
	ShowingCreated = "showing.created"
	ShowingUpdated = "showing.updated"
	ShowingDeleted = "showing.deleted"

	ReservationCreated     = "reservation.created"
	ReservationMerged      = "reservation.merged"
	ReservationUpdated     = "reservation.updated"
	ReservationDeleted     = "reservation.deleted"
	ReservationTransferred = "reservation.transferred"
)

// Event is published after a successful state change.  It carries enough
// for downstream consumers to log or notify without querying the
// database.  Fields that do not apply to the event type are omitted.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	ShowingID       uint64     `json:"showing_id,omitempty"`
	RoomID          uint64     `json:"room_id,omitempty"`
	Title           string     `json:"title,omitempty"`
	StartsAt        *time.Time `json:"starts_at,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`

	ReservationID        uint64 `json:"reservation_id,omitempty"`
	Name                 string `json:"name,omitempty"`
	Tickets              int    `json:"tickets,omitempty"`
	FromShowingID        uint64 `json:"from_showing_id,omitempty"`
	DeletedReservationID uint64 `json:"deleted_reservation_id,omitempty"`
}

func newEvent(typ string) Event {
	return Event{ID: uuid.NewString(), Type: typ, OccurredAt: time.Now().UTC()}
}

// ShowingEvent describes a change to s.
func ShowingEvent(typ string, s model.Showing) Event {
	ev := newEvent(typ)
	ev.ShowingID = s.ID
	ev.RoomID = s.RoomID
	ev.Title = s.Title
	if !s.StartsAt.IsZero() {
		start := s.StartsAt.UTC()
		ev.StartsAt = &start
	}
	ev.DurationMinutes = s.DurationMinutes
	return ev
}

// ReservationEvent describes a change to r.
func ReservationEvent(typ string, r model.Reservation) Event {
	ev := newEvent(typ)
	ev.ReservationID = r.ID
	ev.ShowingID = r.ShowingID
	ev.Name = r.Name
	ev.Tickets = r.Tickets
	return ev
}
