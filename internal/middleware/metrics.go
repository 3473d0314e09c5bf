package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Application-level metrics. HTTP request metrics come from fiberprometheus;
// these cover the realtime store, websocket fan-out, and Redis health.
var (
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lokal_websocket_connections",
		Help: "Currently open websocket connections",
	})

	WebSocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lokal_websocket_events_total",
		Help: "Realtime events delivered to websocket clients, by event type",
	}, []string{"event"})

	StoreWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lokal_store_writes_total",
		Help: "Realtime store write operations, by kind",
	}, []string{"kind"})

	StoreNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lokal_store_notifications_total",
		Help: "Change notifications fanned out to store subscriptions",
	})

	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lokal_redis_errors_total",
		Help: "Redis command errors, by command",
	}, []string{"command"})

	GeocodeLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lokal_geocode_lookups_total",
		Help: "Geocoder lookups, by kind and outcome",
	}, []string{"kind", "outcome"})

	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lokal_websocket_backpressure_drops_total",
		Help: "Messages dropped because a client send buffer was closed or full",
	}, []string{"hub", "reason"})
)

// InitMetrics creates the Prometheus middleware for the Fiber app.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the request-instrumentation handler for the
// given Prometheus middleware instance.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
