package engine_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-allocator/internal/engine"
	"github.com/iliyamo/showtime-allocator/internal/model"
)

func TestTransferReservation_MovesKeepingID(t *testing.T) {
	f := newFixture(t)
	src := f.showing(t, "Movie A", "A", "10:00", 120)
	dst := f.showing(t, "Movie A", "A", "18:00", 120)
	ann := f.book(t, src.ID, "Ann", 4)

	out, err := f.eng.TransferReservation(context.Background(), ann.Reservation.ID, dst.ID)

	require.NoError(t, err)
	assert.Equal(t, engine.ActionMoved, out.Action)
	assert.Equal(t, ann.Reservation.ID, out.Reservation.ID)
	assert.Equal(t, dst.ID, out.Reservation.ShowingID)
	assert.Equal(t, src.ID, out.FromShowingID)
	assert.Equal(t, 0, f.booked(t, src.ID))
	assert.Equal(t, 4, f.booked(t, dst.ID))
}

func TestTransferReservation_MergesAtDestination(t *testing.T) {
	f := newFixture(t)
	src := f.showing(t, "Movie A", "A", "10:00", 120)
	dst := f.showing(t, "Movie A", "B", "10:00", 120)
	moving := f.book(t, src.ID, "Ann", 3)
	waiting := f.book(t, dst.ID, "Ann", 2)

	out, err := f.eng.TransferReservation(context.Background(), moving.Reservation.ID, dst.ID)

	require.NoError(t, err)
	assert.Equal(t, engine.ActionMerged, out.Action)
	assert.Equal(t, waiting.Reservation.ID, out.Reservation.ID)
	assert.Equal(t, moving.Reservation.ID, out.DeletedID)
	assert.Equal(t, 5, out.Reservation.Tickets)
	assert.Empty(t, f.reservations(t, src.ID))
	list := f.reservations(t, dst.ID)
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].Tickets)
}

func TestTransferReservation_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		setup  func(t *testing.T, f *fixture) (resID, dstID uint64)
		reason string
	}{
		{
			name: "different title",
			setup: func(t *testing.T, f *fixture) (uint64, uint64) {
				src := f.showing(t, "Movie A", "A", "10:00", 120)
				dst := f.showing(t, "Movie B", "A", "18:00", 120)
				return f.book(t, src.ID, "Ann", 2).Reservation.ID, dst.ID
			},
			reason: engine.ReasonTitleMismatch,
		},
		{
			name: "destination full",
			setup: func(t *testing.T, f *fixture) (uint64, uint64) {
				src := f.showing(t, "Movie A", "A", "10:00", 120)
				dst := f.showing(t, "Movie A", "B", "10:00", 120)
				f.fill(t, dst.ID, 9)
				return f.book(t, src.ID, "Ann", 2).Reservation.ID, dst.ID
			},
			reason: engine.ReasonCapacityFull,
		},
		{
			name: "merge would pass the cap",
			setup: func(t *testing.T, f *fixture) (uint64, uint64) {
				src := f.showing(t, "Movie A", "A", "10:00", 120)
				dst := f.showing(t, "Movie A", "A", "18:00", 120)
				f.book(t, dst.ID, "Ann", 6)
				return f.book(t, src.ID, "Ann", 3).Reservation.ID, dst.ID
			},
			reason: engine.ReasonPerPersonCap,
		},
		{
			name: "merge at the cap boundary",
			setup: func(t *testing.T, f *fixture) (uint64, uint64) {
				src := f.showing(t, "Movie A", "A", "10:00", 120)
				dst := f.showing(t, "Movie A", "A", "18:00", 120)
				f.book(t, dst.ID, "Ann", 1)
				return f.book(t, src.ID, "Ann", 8).Reservation.ID, dst.ID
			},
			reason: engine.ReasonPerPersonCap,
		},
		{
			name: "stored count above the cap",
			setup: func(t *testing.T, f *fixture) (uint64, uint64) {
				src := f.showing(t, "Movie A", "A", "10:00", 120)
				dst := f.showing(t, "Movie A", "A", "18:00", 120)
				f.book(t, dst.ID, "Ann", 1)
				r := model.Reservation{ShowingID: src.ID, Name: "Ann", Tickets: math.MaxInt}
				require.NoError(t, f.store.CreateReservation(context.Background(), &r))
				return r.ID, dst.ID
			},
			reason: engine.ReasonPerPersonCap,
		},
		{
			name: "unknown destination",
			setup: func(t *testing.T, f *fixture) (uint64, uint64) {
				src := f.showing(t, "Movie A", "A", "10:00", 120)
				return f.book(t, src.ID, "Ann", 2).Reservation.ID, 999
			},
			reason: engine.ReasonNotFound,
		},
		{
			name: "same showing",
			setup: func(t *testing.T, f *fixture) (uint64, uint64) {
				src := f.showing(t, "Movie A", "A", "10:00", 120)
				return f.book(t, src.ID, "Ann", 2).Reservation.ID, src.ID
			},
			reason: engine.ReasonBadField,
		},
		{
			name: "unknown reservation",
			setup: func(t *testing.T, f *fixture) (uint64, uint64) {
				dst := f.showing(t, "Movie A", "A", "10:00", 120)
				return 404, dst.ID
			},
			reason: engine.ReasonNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			resID, dstID := tt.setup(t, f)
			before := snapshot(t, f)

			_, err := f.eng.TransferReservation(ctx, resID, dstID)

			require.Error(t, err)
			assert.Equal(t, tt.reason, engine.Reason(err))
			assert.Equal(t, before, snapshot(t, f), "failed transfer must not change reservations")
		})
	}
}

func TestTransferReservation_TitleMismatchDetails(t *testing.T) {
	f := newFixture(t)
	src := f.showing(t, "Movie A", "A", "10:00", 120)
	dst := f.showing(t, "Movie B", "B", "10:00", 120)
	ann := f.book(t, src.ID, "Ann", 2)

	_, err := f.eng.TransferReservation(context.Background(), ann.Reservation.ID, dst.ID)

	var it *engine.IneligibleTransferError
	require.True(t, errors.As(err, &it))
	assert.Equal(t, "Movie A", it.FromTitle)
	assert.Equal(t, "Movie B", it.ToTitle)
}

func TestListTransferTargets(t *testing.T) {
	f := newFixture(t)
	src := f.showing(t, "Movie A", "A", "10:00", 120)
	f.showing(t, "Movie B", "A", "13:00", 60)
	later := f.showing(t, "Movie A", "A", "18:00", 120)
	other := f.showing(t, "Movie A", "B", "10:00", 120)
	ann := f.book(t, src.ID, "Ann", 2)

	targets, err := f.eng.ListTransferTargets(context.Background(), ann.Reservation.ID)

	require.NoError(t, err)
	ids := make([]uint64, 0, len(targets))
	for _, s := range targets {
		assert.Equal(t, "Movie A", s.Title)
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []uint64{later.ID, other.ID}, ids)
}

// snapshot renders every reservation in the store for comparison.
func snapshot(t *testing.T, f *fixture) []string {
	t.Helper()
	showings, err := f.store.ListShowingSummaries(context.Background(), model.ShowingFilter{})
	require.NoError(t, err)
	var out []string
	for _, s := range showings {
		for _, r := range f.reservations(t, s.ID) {
			out = append(out, fmt.Sprintf("%d/%d/%s/%d", r.ID, r.ShowingID, r.Name, r.Tickets))
		}
	}
	return out
}
