package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-allocator/internal/engine"
)

const codeInternal = "internal"

// statusFor maps an engine rejection reason to an HTTP status.
func statusFor(reason string) int {
	switch reason {
	case engine.ReasonBadField:
		return http.StatusBadRequest
	case engine.ReasonNotFound, engine.ReasonRoomMissing:
		return http.StatusNotFound
	case engine.ReasonOverlap, engine.ReasonCapacityFull, engine.ReasonCapacityOnRoomChange, engine.ReasonPerPersonCap:
		return http.StatusConflict
	case engine.ReasonTitleMismatch:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError writes {"error", "code"} plus the values a client needs
// to act on the rejection.  Infrastructure failures are logged and
// reported without detail.
func (h *Handler) respondError(c echo.Context, err error) error {
	reason := engine.Reason(err)
	if reason == "" {
		h.Log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal error", "code": codeInternal})
	}
	body := map[string]any{"error": err.Error(), "code": reason}

	var (
		ve *engine.ValidationError
		nf *engine.NotFoundError
		ce *engine.ConflictError
		ca *engine.CapacityError
		pp *engine.PerPersonLimitError
		it *engine.IneligibleTransferError
	)
	switch {
	case errors.As(err, &ve):
		body["field"] = ve.Field
	case errors.As(err, &nf):
		body["entity"] = nf.Entity
		body["id"] = nf.ID
	case errors.As(err, &ce):
		body["conflicting_showing"] = ce.Showing
	case errors.As(err, &ca):
		body["capacity"] = ca.Capacity
		body["reserved"] = ca.Reserved
		if !ca.RoomChange {
			body["requested"] = ca.Requested
			body["available"] = max(ca.Capacity-ca.Reserved, 0)
		}
	case errors.As(err, &pp):
		body["limit"] = pp.Limit
		body["attempted"] = pp.Attempted
	case errors.As(err, &it):
		body["from_title"] = it.FromTitle
		body["to_title"] = it.ToTitle
	}
	return c.JSON(statusFor(reason), body)
}
