package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the Prometheus scrape endpoint. When queueDepth is
// set the queue gauge is refreshed on every scrape.
func MetricsHandler(queueDepth func() int) fiber.Handler {
	RegisterMetrics()
	scrape := adaptor.HTTPHandler(promhttp.Handler())

	return func(c *fiber.Ctx) error {
		if queueDepth != nil {
			QueueDepth().Set(float64(queueDepth()))
		}
		return scrape(c)
	}
}
