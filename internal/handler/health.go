package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger checks a backing service.  *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health returns a health-check endpoint for load balancers.  With a nil
// pinger it only reports that the process is up; otherwise a failed ping
// yields 503.
func Health(p Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if p != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := p.PingContext(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
