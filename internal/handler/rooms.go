package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-allocator/internal/model"
)

// ListRooms handles GET /v1/rooms.
func (h *Handler) ListRooms(c echo.Context) error {
	rooms, err := h.Engine.ListRooms(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": rooms})
}
