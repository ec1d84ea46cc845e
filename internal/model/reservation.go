package model

import "time"

// Reservation is one claimant's aggregate ticket hold within a
// showing.  There is at most one reservation per (showing, name)
// pair; repeated bookings under the same name are merged into it.
//
// Fields:
//  ID        – primary key identifier.
//  ShowingID – showing the tickets are held for.
//  Name      – claimant name, exact-match merge key inside a showing.
//  Tickets   – number of tickets held, always > 0.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Reservation struct {
	ID        uint64    `json:"id"`         // reservations.id
	ShowingID uint64    `json:"showing_id"` // reservations.showing_id
	Name      string    `json:"name"`       // reservations.name
	Tickets   int       `json:"tickets"`    // reservations.tickets
	CreatedAt time.Time `json:"created_at"` // reservations.created_at
	UpdatedAt time.Time `json:"updated_at"` // reservations.updated_at
}
