package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-allocator/internal/engine"
	"github.com/iliyamo/showtime-allocator/internal/queue"
)

func TestCreateShowing(t *testing.T) {
	s := newServer(t)

	id := s.createShowing(t, "Movie A", "A", "10:00", 120)

	assert.NotZero(t, id)
	assert.Equal(t, []string{queue.ShowingCreated}, s.events.types())
	assert.Equal(t, id, s.events.last().ShowingID)
}

func TestCreateShowing_Overlap(t *testing.T) {
	s := newServer(t)
	first := s.createShowing(t, "Movie A", "A", "10:00", 120)

	rec := s.do(t, http.MethodPost, "/v1/showings", map[string]any{
		"title": "Movie B", "starts_at": "2030-03-01T12:00:00Z", "duration_minutes": 60, "room_id": s.rooms["A"],
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, engine.ReasonOverlap, body["code"])
	conflicting := body["conflicting_showing"].(map[string]any)
	assert.Equal(t, float64(first), conflicting["id"])
	assert.Len(t, s.events.types(), 1, "rejected writes publish nothing")
}

func TestCreateShowing_BadField(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/v1/showings", map[string]any{
		"title": "T", "starts_at": "2030-03-01T10:00:00Z", "duration_minutes": 30, "room_id": s.rooms["A"],
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, engine.ReasonBadField, body["code"])
	assert.Equal(t, "duration_minutes", body["field"])
}

func TestListShowings(t *testing.T) {
	s := newServer(t)
	a := s.createShowing(t, "Movie A", "A", "10:00", 120)
	s.createShowing(t, "Movie B", "B", "10:00", 90)
	s.book(t, a, "Ann", 5)

	rec := s.do(t, http.MethodGet, "/v1/showings?room_id="+itoa(s.rooms["A"]), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, float64(a), item["id"])
	assert.Equal(t, float64(5), item["booked_tickets"])
	assert.Equal(t, float64(45), item["available_tickets"])
	assert.Equal(t, "2030-03-01T12:00:00Z", item["ends_at"])
}

func TestListShowings_Empty(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/v1/showings?title=Nothing", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestGetShowing(t *testing.T) {
	s := newServer(t)
	id := s.createShowing(t, "Movie A", "A", "10:00", 120)
	s.book(t, id, "Ann", 2)

	rec := s.do(t, http.MethodGet, "/v1/showings/"+itoa(id), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "2030-03-01T12:15:00Z", body["occupied_until"])
	assert.Equal(t, float64(48), body["available_tickets"])
	assert.Len(t, body["reservations"].([]any), 1)
}

func TestUpdateShowing(t *testing.T) {
	s := newServer(t)
	id := s.createShowing(t, "Movie A", "A", "10:00", 120)
	s.book(t, id, "Ann", 8)
	s.book(t, id, "Bob", 8)

	rec := s.do(t, http.MethodPut, "/v1/showings/"+itoa(id), map[string]any{
		"title": "Movie A", "starts_at": "2030-03-01T10:00:00Z", "duration_minutes": 120, "room_id": s.rooms["B"],
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, engine.ReasonCapacityOnRoomChange, body["code"])
	assert.Equal(t, float64(10), body["capacity"])
	assert.Equal(t, float64(16), body["reserved"])

	rec = s.do(t, http.MethodPut, "/v1/showings/"+itoa(id), map[string]any{
		"title": "Movie A", "starts_at": "2030-03-01T11:00:00Z", "duration_minutes": 100, "room_id": s.rooms["A"],
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(100), decode(t, rec)["duration_minutes"])
	assert.Equal(t, queue.ShowingUpdated, s.events.last().Type)
}

func TestDeleteShowing(t *testing.T) {
	s := newServer(t)
	id := s.createShowing(t, "Movie A", "A", "10:00", 120)
	res := s.book(t, id, "Ann", 2)

	rec := s.do(t, http.MethodDelete, "/v1/showings/"+itoa(id), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	ev := s.events.last()
	assert.Equal(t, queue.ShowingDeleted, ev.Type)
	assert.Equal(t, id, ev.ShowingID)
	assert.Equal(t, "Movie A", ev.Title)
	assert.Equal(t, s.rooms["A"], ev.RoomID)

	rec = s.do(t, http.MethodGet, "/v1/reservations/"+itoa(reservationID(res)), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
