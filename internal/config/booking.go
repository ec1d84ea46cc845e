package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/iliyamo/showtime-allocator/internal/engine"
	"github.com/iliyamo/showtime-allocator/internal/model"
)

// DefaultRooms seeds three rooms when ROOMS is not set.
const DefaultRooms = "A:50,B:80,C:120"

// BookingConfig holds the engine limits and the rooms seeded at startup.
//
// Fields:
//
//	Limits – buffer, per-person cap, duration bounds and lead time.
//	Rooms  – rooms inserted when missing; existing rooms keep their capacity.
type BookingConfig struct {
	Limits engine.Limits
	Rooms  []model.Room
}

// LoadBookingConfig reads BUFFER_MINUTES, PER_PERSON_CAP,
// MIN_DURATION_MINUTES, MAX_DURATION_MINUTES, MIN_LEAD_TIME and ROOMS.
// An invalid combination stops the process.
func LoadBookingConfig() BookingConfig {
	def := engine.DefaultLimits()
	limits := engine.Limits{
		BufferMinutes: envInt("BUFFER_MINUTES", def.BufferMinutes),
		PerPersonCap:  envInt("PER_PERSON_CAP", def.PerPersonCap),
		MinDuration:   envInt("MIN_DURATION_MINUTES", def.MinDuration),
		MaxDuration:   envInt("MAX_DURATION_MINUTES", def.MaxDuration),
		MinLeadTime:   envDur("MIN_LEAD_TIME", def.MinLeadTime),
	}
	if err := limits.Validate(); err != nil {
		log.Fatalf("invalid booking limits: %v", err)
	}
	rooms, err := ParseRooms(envStr("ROOMS", DefaultRooms))
	if err != nil {
		log.Fatalf("invalid ROOMS: %v", err)
	}
	return BookingConfig{Limits: limits, Rooms: rooms}
}

// ParseRooms reads a "name:capacity,..." list.  Names must be unique and
// capacities non-negative; a room of capacity 0 can host showings but
// admits no tickets.
func ParseRooms(s string) ([]model.Room, error) {
	var rooms []model.Room
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, capStr, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("entry %q: want name:capacity", part)
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(capStr))
		if err != nil || capacity < 0 {
			return nil, fmt.Errorf("entry %q: capacity must be a non-negative integer", part)
		}
		if seen[name] {
			return nil, fmt.Errorf("room %q listed twice", name)
		}
		seen[name] = true
		rooms = append(rooms, model.Room{Name: name, Capacity: capacity})
	}
	if len(rooms) == 0 {
		return nil, fmt.Errorf("no rooms configured")
	}
	return rooms, nil
}
