package handler // handler defines http handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-allocator/internal/engine"
	"github.com/iliyamo/showtime-allocator/internal/metrics"
	"github.com/iliyamo/showtime-allocator/internal/queue"
)

// publishTimeout bounds how long a committed write waits on the broker.
const publishTimeout = 3 * time.Second

// EventPublisher sends domain events after a successful change.
// *queue.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// Handler exposes the allocation engine over HTTP.
type Handler struct {
	Engine *engine.Engine // Engine validates and applies every change
	Events EventPublisher // Events may be nil when no broker is configured
	Log    *slog.Logger
}

// NewHandler constructs a Handler and panics if the engine is nil.
func NewHandler(eng *engine.Engine, events EventPublisher, logger *slog.Logger) *Handler {
	if eng == nil {
		panic("nil engine passed to NewHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Engine: eng, Events: events, Log: logger}
}

// publish hands ev to the broker.  Failures are logged and counted but
// never change the response: the change is already committed.
func (h *Handler) publish(c echo.Context, ev queue.Event) {
	if h.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), publishTimeout)
	defer cancel()
	err := h.Events.Publish(ctx, ev)
	metrics.TrackEvent(ev.Type, err)
	if err != nil {
		h.Log.Warn("event not published", "type", ev.Type, "event_id", ev.ID, "err", err)
	}
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id == 0 {
		return 0, &engine.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}

// queryID parses an optional numeric query parameter; absent is zero.
func queryID(c echo.Context, name string) (uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, &engine.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}

func badBody() error {
	return &engine.ValidationError{Field: "body", Reason: "invalid request body"}
}
