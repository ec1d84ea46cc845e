// Package metrics holds the Prometheus collectors of the service.  They
// register with the default registry, which /metrics exposes.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iliyamo/showtime-allocator/internal/engine"
)

const namespace = "showtime"

var (
	engineOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_operations_total",
			Help:      "Engine operations by outcome; result is ok, error or the rejection reason",
		},
		[]string{"operation", "result"},
	)

	ticketsReserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_reserved_total",
			Help:      "Tickets accepted by reservation operations",
		},
		[]string{"action"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events handed to the broker",
		},
		[]string{"type", "status"},
	)
)

// Result labels an engine outcome: "ok", the rejection reason, or
// "error" for infrastructure failures.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	if r := engine.Reason(err); r != "" {
		return r
	}
	return "error"
}

// TrackOperation counts one engine call.
func TrackOperation(operation string, err error) {
	engineOperations.WithLabelValues(operation, Result(err)).Inc()
}

// TrackTickets counts tickets accepted by a reservation operation.
func TrackTickets(action engine.Action, tickets int) {
	if tickets > 0 {
		ticketsReserved.WithLabelValues(string(action)).Add(float64(tickets))
	}
}

// TrackHTTP observes one served request.
func TrackHTTP(method, route string, status int, d time.Duration) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// TrackEvent counts a publish attempt.
func TrackEvent(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	eventsPublished.WithLabelValues(eventType, status).Inc()
}
