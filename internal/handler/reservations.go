package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-allocator/internal/engine"
	"github.com/iliyamo/showtime-allocator/internal/metrics"
	"github.com/iliyamo/showtime-allocator/internal/model"
	"github.com/iliyamo/showtime-allocator/internal/queue"
)

// reservationRequest is the body of reservation create and edit.
type reservationRequest struct {
	Name    string `json:"name"`
	Tickets int    `json:"tickets"`
}

// outcomeResponse reports what a reservation operation did.
type outcomeResponse struct {
	Action               engine.Action     `json:"action"`
	Reservation          model.Reservation `json:"reservation"`
	DeletedReservationID uint64            `json:"deleted_reservation_id,omitempty"`
}

func respondOutcome(c echo.Context, out engine.Outcome) error {
	status := http.StatusOK
	if out.Action == engine.ActionCreated {
		status = http.StatusCreated
	}
	return c.JSON(status, outcomeResponse{
		Action:               out.Action,
		Reservation:          out.Reservation,
		DeletedReservationID: out.DeletedID,
	})
}

// CreateReservation handles POST /v1/showings/:id/reservations.  A name
// already booked in the showing gets the tickets added to its existing
// reservation.
func (h *Handler) CreateReservation(c echo.Context) error {
	showingID, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	var body reservationRequest
	if err := c.Bind(&body); err != nil {
		return h.respondError(c, badBody())
	}
	out, err := h.Engine.CreateOrMergeReservation(c.Request().Context(), showingID, body.Name, body.Tickets)
	metrics.TrackOperation("create_reservation", err)
	if err != nil {
		return h.respondError(c, err)
	}
	metrics.TrackTickets(out.Action, body.Tickets)
	typ := queue.ReservationCreated
	if out.Action == engine.ActionMerged {
		typ = queue.ReservationMerged
	}
	h.publish(c, queue.ReservationEvent(typ, out.Reservation))
	return respondOutcome(c, out)
}

// GetReservation handles GET /v1/reservations/:id.
func (h *Handler) GetReservation(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	r, err := h.Engine.GetReservation(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// UpdateReservation handles PUT /v1/reservations/:id.  Renaming onto a
// claimant already booked in the showing merges the two reservations.
func (h *Handler) UpdateReservation(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	var body reservationRequest
	if err := c.Bind(&body); err != nil {
		return h.respondError(c, badBody())
	}
	out, err := h.Engine.EditReservation(c.Request().Context(), id, body.Name, body.Tickets)
	metrics.TrackOperation("edit_reservation", err)
	if err != nil {
		return h.respondError(c, err)
	}
	typ := queue.ReservationUpdated
	if out.Action == engine.ActionMerged {
		typ = queue.ReservationMerged
	}
	ev := queue.ReservationEvent(typ, out.Reservation)
	ev.DeletedReservationID = out.DeletedID
	h.publish(c, ev)
	return respondOutcome(c, out)
}

// DeleteReservation handles DELETE /v1/reservations/:id.
func (h *Handler) DeleteReservation(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	removed, err := h.Engine.DeleteReservation(c.Request().Context(), id)
	metrics.TrackOperation("delete_reservation", err)
	if err != nil {
		return h.respondError(c, err)
	}
	h.publish(c, queue.ReservationEvent(queue.ReservationDeleted, removed))
	return c.NoContent(http.StatusNoContent)
}

// TransferReservation handles POST /v1/reservations/:id/transfer with
// {"showing_id": N}.
func (h *Handler) TransferReservation(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	var body struct {
		ShowingID uint64 `json:"showing_id"`
	}
	if err := c.Bind(&body); err != nil {
		return h.respondError(c, badBody())
	}
	if body.ShowingID == 0 {
		return h.respondError(c, &engine.ValidationError{Field: "showing_id", Reason: "is required"})
	}
	out, err := h.Engine.TransferReservation(c.Request().Context(), id, body.ShowingID)
	metrics.TrackOperation("transfer_reservation", err)
	if err != nil {
		return h.respondError(c, err)
	}
	ev := queue.ReservationEvent(queue.ReservationTransferred, out.Reservation)
	ev.FromShowingID = out.FromShowingID
	ev.DeletedReservationID = out.DeletedID
	h.publish(c, ev)
	return respondOutcome(c, out)
}

// ListTransferTargets handles GET /v1/reservations/:id/transfer-targets.
func (h *Handler) ListTransferTargets(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	items, err := h.Engine.ListTransferTargets(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	out := make([]showingView, 0, len(items))
	for _, s := range items {
		out = append(out, viewOf(s))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": out})
}
