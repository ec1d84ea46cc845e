package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/showtime-allocator/internal/config"
	"github.com/iliyamo/showtime-allocator/internal/handler"
	"github.com/iliyamo/showtime-allocator/internal/middleware"
)

// Deps bundles what the routes need.  Redis and DB may be nil; caching
// and rate limiting are then skipped and /healthz only reports liveness.
type Deps struct {
	Handler   *handler.Handler
	DB        handler.Pinger
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
}

// RegisterRoutes registers the operational endpoints and the /v1 API.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Route-level middleware runs after routing so c.Path() holds the
	// matched pattern for metrics and rate-limit keys.
	v1 := e.Group("/v1",
		middleware.Instrument(),
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
		middleware.NewRedisCache(d.Cache, d.Redis),
	)
	h := d.Handler

	v1.GET("/rooms", h.ListRooms)

	v1.GET("/showings", h.ListShowings)
	v1.POST("/showings", h.CreateShowing)
	v1.GET("/showings/:id", h.GetShowing)
	v1.PUT("/showings/:id", h.UpdateShowing)
	v1.DELETE("/showings/:id", h.DeleteShowing)
	v1.POST("/showings/:id/reservations", h.CreateReservation)

	v1.GET("/reservations/:id", h.GetReservation)
	v1.PUT("/reservations/:id", h.UpdateReservation)
	v1.DELETE("/reservations/:id", h.DeleteReservation)
	v1.POST("/reservations/:id/transfer", h.TransferReservation)
	v1.GET("/reservations/:id/transfer-targets", h.ListTransferTargets)
}
