package model

import "time"

// Room is a screening room with a fixed seating capacity.  Rooms are
// created when the service boots and are never owned by a showing;
// showings only reference them by ID.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – unique display name of the room.
//  Capacity  – number of tickets a single showing in this room can hold.
//  CreatedAt – creation timestamp.
type Room struct {
	ID        uint64    `json:"id"`         // rooms.id
	Name      string    `json:"name"`       // rooms.name
	Capacity  int       `json:"capacity"`   // rooms.capacity
	CreatedAt time.Time `json:"created_at"` // rooms.created_at
}
