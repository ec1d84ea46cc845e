package handler_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-allocator/internal/engine"
	"github.com/iliyamo/showtime-allocator/internal/queue"
)

func TestCreateReservation_CreatesThenMerges(t *testing.T) {
	s := newServer(t)
	id := s.createShowing(t, "Movie A", "A", "10:00", 120)
	path := "/v1/showings/" + itoa(id) + "/reservations"

	rec := s.do(t, http.MethodPost, path, map[string]any{"name": "Ann", "tickets": 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode(t, rec)
	assert.Equal(t, string(engine.ActionCreated), first["action"])

	rec = s.do(t, http.MethodPost, path, map[string]any{"name": "Ann", "tickets": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode(t, rec)
	assert.Equal(t, string(engine.ActionMerged), second["action"])
	assert.Equal(t, reservationID(first), reservationID(second))
	assert.Equal(t, float64(5), second["reservation"].(map[string]any)["tickets"])
	assert.NotContains(t, second, "deleted_reservation_id")

	assert.Equal(t, []string{queue.ShowingCreated, queue.ReservationCreated, queue.ReservationMerged}, s.events.types())
}

func TestCreateReservation_Rejections(t *testing.T) {
	s := newServer(t)
	big := s.createShowing(t, "Movie A", "A", "10:00", 120)
	small := s.createShowing(t, "Movie A", "B", "10:00", 120)
	s.book(t, big, "Ann", 7)
	s.book(t, small, "Bob", 8)

	rec := s.do(t, http.MethodPost, "/v1/showings/"+itoa(big)+"/reservations", map[string]any{"name": "Ann", "tickets": 2})
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, engine.ReasonPerPersonCap, body["code"])
	assert.Equal(t, float64(8), body["limit"])
	assert.Equal(t, float64(9), body["attempted"])

	rec = s.do(t, http.MethodPost, "/v1/showings/"+itoa(small)+"/reservations", map[string]any{"name": "Cy", "tickets": 3})
	require.Equal(t, http.StatusConflict, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, engine.ReasonCapacityFull, body["code"])
	assert.Equal(t, float64(2), body["available"])
	assert.Equal(t, float64(3), body["requested"])

	rec = s.do(t, http.MethodPost, "/v1/showings/"+itoa(small)+"/reservations", map[string]any{"name": "", "tickets": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name", decode(t, rec)["field"])
}

func TestCreateReservation_HugeTicketCount(t *testing.T) {
	s := newServer(t)
	id := s.createShowing(t, "Movie A", "B", "10:00", 120)
	s.book(t, id, "Ann", 1)

	rec := s.do(t, http.MethodPost, "/v1/showings/"+itoa(id)+"/reservations",
		`{"name":"Ann","tickets":9223372036854775807}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, engine.ReasonPerPersonCap, decode(t, rec)["code"])

	rec = s.do(t, http.MethodGet, "/v1/showings/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["booked_tickets"])
	assert.Equal(t, float64(9), body["available_tickets"])
}

func TestUpdateReservation_RenameMerges(t *testing.T) {
	s := newServer(t)
	id := s.createShowing(t, "Movie A", "A", "10:00", 120)
	ann := reservationID(s.book(t, id, "Ann", 3))
	bob := reservationID(s.book(t, id, "Bob", 2))

	rec := s.do(t, http.MethodPut, "/v1/reservations/"+itoa(bob), map[string]any{"name": "Ann", "tickets": 2})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, string(engine.ActionMerged), body["action"])
	assert.Equal(t, ann, reservationID(body))
	assert.Equal(t, float64(bob), body["deleted_reservation_id"])
	ev := s.events.last()
	assert.Equal(t, queue.ReservationMerged, ev.Type)
	assert.Equal(t, bob, ev.DeletedReservationID)
}

func TestGetAndDeleteReservation(t *testing.T) {
	s := newServer(t)
	id := s.createShowing(t, "Movie A", "A", "10:00", 120)
	res := reservationID(s.book(t, id, "Ann", 3))

	rec := s.do(t, http.MethodGet, "/v1/reservations/"+itoa(res), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ann", decode(t, rec)["name"])

	rec = s.do(t, http.MethodDelete, "/v1/reservations/"+itoa(res), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	ev := s.events.last()
	assert.Equal(t, queue.ReservationDeleted, ev.Type)
	assert.Equal(t, res, ev.ReservationID)
	assert.Equal(t, id, ev.ShowingID)
	assert.Equal(t, "Ann", ev.Name)
	assert.Equal(t, 3, ev.Tickets)
}

func TestTransferReservation(t *testing.T) {
	s := newServer(t)
	src := s.createShowing(t, "Movie A", "A", "10:00", 120)
	dst := s.createShowing(t, "Movie A", "A", "18:00", 120)
	other := s.createShowing(t, "Movie B", "B", "10:00", 120)
	res := reservationID(s.book(t, src, "Ann", 4))

	rec := s.do(t, http.MethodGet, "/v1/reservations/"+itoa(res)+"/transfer-targets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	targets := decode(t, rec)["items"].([]any)
	require.Len(t, targets, 1)
	assert.Equal(t, float64(dst), targets[0].(map[string]any)["id"])

	rec = s.do(t, http.MethodPost, "/v1/reservations/"+itoa(res)+"/transfer", map[string]any{"showing_id": other})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, engine.ReasonTitleMismatch, body["code"])
	assert.Equal(t, "Movie A", body["from_title"])
	assert.Equal(t, "Movie B", body["to_title"])

	rec = s.do(t, http.MethodPost, "/v1/reservations/"+itoa(res)+"/transfer", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "showing_id", decode(t, rec)["field"])

	rec = s.do(t, http.MethodPost, "/v1/reservations/"+itoa(res)+"/transfer", map[string]any{"showing_id": dst})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, string(engine.ActionMoved), body["action"])
	assert.Equal(t, res, reservationID(body))
	ev := s.events.last()
	assert.Equal(t, queue.ReservationTransferred, ev.Type)
	assert.Equal(t, src, ev.FromShowingID)
	assert.Equal(t, dst, ev.ShowingID)
}

func TestPublishFailureKeepsResponse(t *testing.T) {
	s := newServer(t)
	s.events.err = errors.New("broker down")

	rec := s.do(t, http.MethodPost, "/v1/showings", map[string]any{
		"title": "Movie A", "starts_at": "2030-03-01T10:00:00Z", "duration_minutes": 90, "room_id": s.rooms["A"],
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, s.events.types(), 1)
}
