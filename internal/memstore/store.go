// Package memstore is an in-memory implementation of engine.Store.
//
// Transactions are serializable: WithTx holds a single writer lock for
// the whole callback and works on a private copy of the data that only
// replaces the committed state when the callback succeeds.  Reads made
// outside a transaction share a read lock.  It backs the engine tests
// and the STORE_DRIVER=memory development mode.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/showtime-allocator/internal/model"
)

type txKey struct{}

// Store holds rooms, showings and reservations in memory.
type Store struct {
	mu   sync.RWMutex
	data *state
}

type state struct {
	rooms        map[uint64]model.Room
	showings     map[uint64]model.Showing
	reservations map[uint64]model.Reservation

	lastRoomID        uint64
	lastShowingID     uint64
	lastReservationID uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{data: &state{
		rooms:        make(map[uint64]model.Room),
		showings:     make(map[uint64]model.Showing),
		reservations: make(map[uint64]model.Reservation),
	}}
}

func (s *state) clone() *state {
	c := &state{
		rooms:             make(map[uint64]model.Room, len(s.rooms)),
		showings:          make(map[uint64]model.Showing, len(s.showings)),
		reservations:      make(map[uint64]model.Reservation, len(s.reservations)),
		lastRoomID:        s.lastRoomID,
		lastShowingID:     s.lastShowingID,
		lastReservationID: s.lastReservationID,
	}
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	for k, v := range s.showings {
		c.showings[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	return c
}

// WithTx runs fn against a private copy of the data and commits it only
// when fn returns nil.  Nested calls join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, work)); err != nil {
		return err
	}
	s.data = work
	return nil
}

// view returns the state visible to ctx and a func releasing it.
func (s *Store) view(ctx context.Context) (*state, func()) {
	if st, ok := ctx.Value(txKey{}).(*state); ok {
		return st, func() {}
	}
	s.mu.RLock()
	return s.data, s.mu.RUnlock
}

// mutate applies fn inside the caller's transaction, or as a single
// autocommitted step when there is none.
func (s *Store) mutate(ctx context.Context, fn func(st *state) error) error {
	if st, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.data = work
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// EnsureRooms inserts every room whose name is not present yet.  The ID
// and CreatedAt of the given rooms are ignored.
func (s *Store) EnsureRooms(ctx context.Context, rooms []model.Room) error {
	return s.mutate(ctx, func(st *state) error {
		names := make(map[string]bool, len(st.rooms))
		for _, r := range st.rooms {
			names[r.Name] = true
		}
		for _, r := range rooms {
			if names[r.Name] {
				continue
			}
			st.lastRoomID++
			r.ID = st.lastRoomID
			r.CreatedAt = now()
			st.rooms[r.ID] = r
			names[r.Name] = true
		}
		return nil
	})
}

// GetRoom returns a room by ID.
func (s *Store) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	st, done := s.view(ctx)
	defer done()
	r, ok := st.rooms[id]
	if !ok {
		return model.Room{}, model.ErrRoomNotFound
	}
	return r, nil
}

// GetRoomForUpdate is GetRoom; the transaction lock already covers it.
func (s *Store) GetRoomForUpdate(ctx context.Context, id uint64) (model.Room, error) {
	return s.GetRoom(ctx, id)
}

// ListRooms returns rooms ordered by name.
func (s *Store) ListRooms(ctx context.Context) ([]model.Room, error) {
	st, done := s.view(ctx)
	defer done()
	out := make([]model.Room, 0, len(st.rooms))
	for _, r := range st.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetShowing returns a showing by ID.
func (s *Store) GetShowing(ctx context.Context, id uint64) (model.Showing, error) {
	st, done := s.view(ctx)
	defer done()
	sh, ok := st.showings[id]
	if !ok {
		return model.Showing{}, model.ErrShowingNotFound
	}
	return sh, nil
}

// GetShowingForUpdate is GetShowing; the transaction lock already covers it.
func (s *Store) GetShowingForUpdate(ctx context.Context, id uint64) (model.Showing, error) {
	return s.GetShowing(ctx, id)
}

// GetShowingSummary returns a showing with its room and booked total.
func (s *Store) GetShowingSummary(ctx context.Context, id uint64) (model.ShowingSummary, error) {
	st, done := s.view(ctx)
	defer done()
	sh, ok := st.showings[id]
	if !ok {
		return model.ShowingSummary{}, model.ErrShowingNotFound
	}
	return st.summarize(sh), nil
}

func (st *state) summarize(sh model.Showing) model.ShowingSummary {
	room := st.rooms[sh.RoomID]
	booked := 0
	for _, r := range st.reservations {
		if r.ShowingID == sh.ID {
			booked += r.Tickets
		}
	}
	return model.ShowingSummary{
		Showing:       sh,
		RoomName:      room.Name,
		RoomCapacity:  room.Capacity,
		BookedTickets: booked,
	}
}

// ListShowingsByRoom returns the showings in a room ordered by start.
func (s *Store) ListShowingsByRoom(ctx context.Context, roomID uint64) ([]model.Showing, error) {
	st, done := s.view(ctx)
	defer done()
	var out []model.Showing
	for _, sh := range st.showings {
		if sh.RoomID == roomID {
			out = append(out, sh)
		}
	}
	sortShowings(out)
	return out, nil
}

// ListShowingSummaries returns filtered showings ordered by start.
func (s *Store) ListShowingSummaries(ctx context.Context, filter model.ShowingFilter) ([]model.ShowingSummary, error) {
	st, done := s.view(ctx)
	defer done()
	var picked []model.Showing
	for _, sh := range st.showings {
		if filter.RoomID != 0 && sh.RoomID != filter.RoomID {
			continue
		}
		if filter.Title != "" && sh.Title != filter.Title {
			continue
		}
		picked = append(picked, sh)
	}
	sortShowings(picked)
	out := make([]model.ShowingSummary, 0, len(picked))
	for _, sh := range picked {
		out = append(out, st.summarize(sh))
	}
	return out, nil
}

func sortShowings(list []model.Showing) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartsAt.Equal(list[j].StartsAt) {
			return list[i].StartsAt.Before(list[j].StartsAt)
		}
		return list[i].ID < list[j].ID
	})
}

// CreateShowing inserts a showing and assigns its ID and timestamps.
func (s *Store) CreateShowing(ctx context.Context, sh *model.Showing) error {
	return s.mutate(ctx, func(st *state) error {
		if _, ok := st.rooms[sh.RoomID]; !ok {
			return model.ErrRoomNotFound
		}
		st.lastShowingID++
		sh.ID = st.lastShowingID
		sh.CreatedAt = now()
		sh.UpdatedAt = sh.CreatedAt
		st.showings[sh.ID] = *sh
		return nil
	})
}

// UpdateShowing overwrites title, start, duration and room.
func (s *Store) UpdateShowing(ctx context.Context, sh *model.Showing) error {
	return s.mutate(ctx, func(st *state) error {
		cur, ok := st.showings[sh.ID]
		if !ok {
			return model.ErrShowingNotFound
		}
		if _, ok := st.rooms[sh.RoomID]; !ok {
			return model.ErrRoomNotFound
		}
		cur.Title = sh.Title
		cur.StartsAt = sh.StartsAt
		cur.DurationMinutes = sh.DurationMinutes
		cur.RoomID = sh.RoomID
		cur.UpdatedAt = now()
		st.showings[cur.ID] = cur
		*sh = cur
		return nil
	})
}

// DeleteShowing removes a showing and every reservation it owns.
func (s *Store) DeleteShowing(ctx context.Context, id uint64) error {
	return s.mutate(ctx, func(st *state) error {
		if _, ok := st.showings[id]; !ok {
			return model.ErrShowingNotFound
		}
		for rid, r := range st.reservations {
			if r.ShowingID == id {
				delete(st.reservations, rid)
			}
		}
		delete(st.showings, id)
		return nil
	})
}

// GetReservation returns a reservation by ID.
func (s *Store) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	st, done := s.view(ctx)
	defer done()
	r, ok := st.reservations[id]
	if !ok {
		return model.Reservation{}, model.ErrReservationNotFound
	}
	return r, nil
}

// GetReservationForUpdate is GetReservation; the transaction lock already covers it.
func (s *Store) GetReservationForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	return s.GetReservation(ctx, id)
}

// FindReservationByName returns the reservation held by name in a
// showing, or nil.
func (s *Store) FindReservationByName(ctx context.Context, showingID uint64, name string) (*model.Reservation, error) {
	st, done := s.view(ctx)
	defer done()
	for _, r := range st.reservations {
		if r.ShowingID == showingID && r.Name == name {
			found := r
			return &found, nil
		}
	}
	return nil, nil
}

// ListReservations returns a showing's reservations ordered by name.
func (s *Store) ListReservations(ctx context.Context, showingID uint64) ([]model.Reservation, error) {
	st, done := s.view(ctx)
	defer done()
	var out []model.Reservation
	for _, r := range st.reservations {
		if r.ShowingID == showingID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SumTickets totals a showing's tickets, skipping excludeIDs.
func (s *Store) SumTickets(ctx context.Context, showingID uint64, excludeIDs ...uint64) (int, error) {
	st, done := s.view(ctx)
	defer done()
	skip := make(map[uint64]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		skip[id] = true
	}
	total := 0
	for _, r := range st.reservations {
		if r.ShowingID == showingID && !skip[r.ID] {
			total += r.Tickets
		}
	}
	return total, nil
}

func (st *state) nameTaken(showingID uint64, name string, self uint64) bool {
	for _, r := range st.reservations {
		if r.ShowingID == showingID && r.Name == name && r.ID != self {
			return true
		}
	}
	return false
}

// CreateReservation inserts a reservation and assigns its ID.
func (s *Store) CreateReservation(ctx context.Context, r *model.Reservation) error {
	return s.mutate(ctx, func(st *state) error {
		if _, ok := st.showings[r.ShowingID]; !ok {
			return model.ErrShowingNotFound
		}
		if st.nameTaken(r.ShowingID, r.Name, 0) {
			return model.ErrDuplicateClaimant
		}
		st.lastReservationID++
		r.ID = st.lastReservationID
		r.CreatedAt = now()
		r.UpdatedAt = r.CreatedAt
		st.reservations[r.ID] = *r
		return nil
	})
}

// UpdateReservation overwrites showing, name and tickets.
func (s *Store) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	return s.mutate(ctx, func(st *state) error {
		cur, ok := st.reservations[r.ID]
		if !ok {
			return model.ErrReservationNotFound
		}
		if _, ok := st.showings[r.ShowingID]; !ok {
			return model.ErrShowingNotFound
		}
		if st.nameTaken(r.ShowingID, r.Name, r.ID) {
			return model.ErrDuplicateClaimant
		}
		cur.ShowingID = r.ShowingID
		cur.Name = r.Name
		cur.Tickets = r.Tickets
		cur.UpdatedAt = now()
		st.reservations[cur.ID] = cur
		*r = cur
		return nil
	})
}

// DeleteReservation removes a reservation.
func (s *Store) DeleteReservation(ctx context.Context, id uint64) error {
	return s.mutate(ctx, func(st *state) error {
		if _, ok := st.reservations[id]; !ok {
			return model.ErrReservationNotFound
		}
		delete(st.reservations, id)
		return nil
	})
}
