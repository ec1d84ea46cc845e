package model

import "time"

// Showing is a scheduled screening of a title in a room.  The room is
// occupied from StartsAt until the nominal end plus the turnaround
// buffer; the buffer itself is configuration and is not stored.
//
// Fields:
//  ID              – primary key identifier.
//  RoomID          – room hosting the showing.
//  Title           – free text title, also the transfer eligibility key.
//  StartsAt        – absolute start instant (UTC).
//  DurationMinutes – running time in minutes.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Showing struct {
	ID              uint64    `json:"id"`               // showings.id
	RoomID          uint64    `json:"room_id"`          // showings.room_id
	Title           string    `json:"title"`            // showings.title
	StartsAt        time.Time `json:"starts_at"`        // showings.starts_at
	DurationMinutes int       `json:"duration_minutes"` // showings.duration_minutes
	CreatedAt       time.Time `json:"created_at"`       // showings.created_at
	UpdatedAt       time.Time `json:"updated_at"`       // showings.updated_at
}

// ShowingSummary is a showing joined with its room and the aggregate
// number of tickets currently reserved for it.  It backs listings.
type ShowingSummary struct {
	Showing
	RoomName      string `json:"room_name"`
	RoomCapacity  int    `json:"room_capacity"`
	BookedTickets int    `json:"booked_tickets"`
}

// AvailableTickets reports how many more tickets the room can take.
func (s ShowingSummary) AvailableTickets() int {
	if left := s.RoomCapacity - s.BookedTickets; left > 0 {
		return left
	}
	return 0
}

// ShowingDetail is a showing with its room and every reservation held
// against it, ordered by claimant name.
type ShowingDetail struct {
	ShowingSummary
	OccupiedUntil time.Time     `json:"occupied_until"`
	Reservations  []Reservation `json:"reservations"`
}

// ShowingFilter narrows showing listings.  Zero values match everything.
type ShowingFilter struct {
	RoomID uint64 // only showings in this room
	Title  string // only showings with exactly this title
}
