package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-allocator/internal/engine"
	"github.com/iliyamo/showtime-allocator/internal/metrics"
	"github.com/iliyamo/showtime-allocator/internal/model"
	"github.com/iliyamo/showtime-allocator/internal/queue"
)

// showingRequest is the body of POST /v1/showings and PUT /v1/showings/:id.
type showingRequest struct {
	Title           string `json:"title"`
	StartsAt        string `json:"starts_at"` // RFC 3339, or 2006-01-02T15:04 read as UTC
	DurationMinutes int    `json:"duration_minutes"`
	RoomID          uint64 `json:"room_id"`
}

func (r showingRequest) input() engine.ShowingInput {
	return engine.ShowingInput{
		Title:           r.Title,
		StartsAt:        r.StartsAt,
		DurationMinutes: r.DurationMinutes,
		RoomID:          r.RoomID,
	}
}

// showingView adds derived fields to a listed showing.
type showingView struct {
	model.ShowingSummary
	EndsAt           time.Time `json:"ends_at"`
	AvailableTickets int       `json:"available_tickets"`
}

func viewOf(s model.ShowingSummary) showingView {
	return showingView{
		ShowingSummary:   s,
		EndsAt:           s.StartsAt.Add(time.Duration(s.DurationMinutes) * time.Minute),
		AvailableTickets: s.AvailableTickets(),
	}
}

// ListShowings handles GET /v1/showings?room_id=&title=.
func (h *Handler) ListShowings(c echo.Context) error {
	roomID, err := queryID(c, "room_id")
	if err != nil {
		return h.respondError(c, err)
	}
	filter := model.ShowingFilter{RoomID: roomID, Title: strings.TrimSpace(c.QueryParam("title"))}
	items, err := h.Engine.ListShowings(c.Request().Context(), filter)
	if err != nil {
		return h.respondError(c, err)
	}
	out := make([]showingView, 0, len(items))
	for _, s := range items {
		out = append(out, viewOf(s))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": out})
}

// GetShowing handles GET /v1/showings/:id and includes the reservations.
func (h *Handler) GetShowing(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	detail, err := h.Engine.GetShowingDetail(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, struct {
		showingView
		OccupiedUntil time.Time           `json:"occupied_until"`
		Reservations  []model.Reservation `json:"reservations"`
	}{
		showingView:   viewOf(detail.ShowingSummary),
		OccupiedUntil: detail.OccupiedUntil,
		Reservations:  detail.Reservations,
	})
}

// CreateShowing handles POST /v1/showings.
func (h *Handler) CreateShowing(c echo.Context) error {
	var body showingRequest
	if err := c.Bind(&body); err != nil {
		return h.respondError(c, badBody())
	}
	s, err := h.Engine.CreateShowing(c.Request().Context(), body.input())
	metrics.TrackOperation("create_showing", err)
	if err != nil {
		return h.respondError(c, err)
	}
	h.publish(c, queue.ShowingEvent(queue.ShowingCreated, s))
	return c.JSON(http.StatusCreated, s)
}

// UpdateShowing handles PUT /v1/showings/:id.  All fields are required;
// reservations stay attached.
func (h *Handler) UpdateShowing(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	var body showingRequest
	if err := c.Bind(&body); err != nil {
		return h.respondError(c, badBody())
	}
	s, err := h.Engine.UpdateShowing(c.Request().Context(), id, body.input())
	metrics.TrackOperation("update_showing", err)
	if err != nil {
		return h.respondError(c, err)
	}
	h.publish(c, queue.ShowingEvent(queue.ShowingUpdated, s))
	return c.JSON(http.StatusOK, s)
}

// DeleteShowing handles DELETE /v1/showings/:id.  Its reservations are
// removed with it.
func (h *Handler) DeleteShowing(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	removed, err := h.Engine.DeleteShowing(c.Request().Context(), id)
	metrics.TrackOperation("delete_showing", err)
	if err != nil {
		return h.respondError(c, err)
	}
	h.publish(c, queue.ShowingEvent(queue.ShowingDeleted, removed))
	return c.NoContent(http.StatusNoContent)
}
