package engine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-allocator/internal/clock"
	"github.com/iliyamo/showtime-allocator/internal/engine"
	"github.com/iliyamo/showtime-allocator/internal/memstore"
	"github.com/iliyamo/showtime-allocator/internal/model"
)

// now is pinned well before every fixture so lead-time checks pass.
var now = time.Date(2030, 3, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	eng   *engine.Engine
	store *memstore.Store
	rooms map[string]model.Room
}

// newFixture builds an engine over a store with room A (capacity 50)
// and room B (capacity 10).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	ctx := context.Background()
	require.NoError(t, store.EnsureRooms(ctx, []model.Room{
		{Name: "A", Capacity: 50},
		{Name: "B", Capacity: 10},
	}))
	rooms, err := store.ListRooms(ctx)
	require.NoError(t, err)
	byName := make(map[string]model.Room, len(rooms))
	for _, r := range rooms {
		byName[r.Name] = r
	}
	eng, err := engine.New(store, engine.DefaultLimits(), engine.WithClock(clock.NewFixed(now)))
	require.NoError(t, err)
	return &fixture{eng: eng, store: store, rooms: byName}
}

// at returns an RFC 3339 timestamp on the fixture day.
func at(hhmm string) string {
	return fmt.Sprintf("2030-03-01T%s:00Z", hhmm)
}

func (f *fixture) showing(t *testing.T, title, room, start string, minutes int) model.Showing {
	t.Helper()
	s, err := f.eng.CreateShowing(context.Background(), engine.ShowingInput{
		Title:           title,
		StartsAt:        at(start),
		DurationMinutes: minutes,
		RoomID:          f.rooms[room].ID,
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) book(t *testing.T, showingID uint64, name string, tickets int) engine.Outcome {
	t.Helper()
	out, err := f.eng.CreateOrMergeReservation(context.Background(), showingID, name, tickets)
	require.NoError(t, err)
	return out
}

// fill books exactly n tickets for showingID spread over claimants
// holding at most the per-person cap each.
func (f *fixture) fill(t *testing.T, showingID uint64, n int) {
	t.Helper()
	limit := f.eng.Limits().PerPersonCap
	for i := 0; n > 0; i++ {
		take := limit
		if n < take {
			take = n
		}
		f.book(t, showingID, fmt.Sprintf("filler-%d", i), take)
		n -= take
	}
}

func (f *fixture) reservations(t *testing.T, showingID uint64) []model.Reservation {
	t.Helper()
	list, err := f.store.ListReservations(context.Background(), showingID)
	require.NoError(t, err)
	return list
}

func (f *fixture) booked(t *testing.T, showingID uint64) int {
	t.Helper()
	total, err := f.eng.TotalReserved(context.Background(), showingID)
	require.NoError(t, err)
	return total
}

func (f *fixture) find(t *testing.T, showingID uint64, name string) model.Reservation {
	t.Helper()
	r, err := f.store.FindReservationByName(context.Background(), showingID, name)
	require.NoError(t, err)
	require.NotNil(t, r, "no reservation for %q", name)
	return *r
}
