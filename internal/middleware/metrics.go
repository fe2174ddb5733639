package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts Redis command failures by command name. The cache layer
// increments it from a client hook.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inkwell_redis_errors_total",
	Help: "Total number of Redis command errors by command",
}, []string{"command"})

// AuthFailures counts rejected authentication attempts by reason.
var AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inkwell_auth_failures_total",
	Help: "Total number of rejected authentication attempts by reason",
}, []string{"reason"})

// RegisterMetrics wires Prometheus HTTP metrics into the app and exposes
// the scrape endpoint at /metrics.
func RegisterMetrics(app *fiber.App) {
	prom := fiberprometheus.New("inkwell")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)
}
