package handler

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grader/internal/config"
	"github.com/noah-isme/gema-grader/internal/utils"
)

const healthProbeTimeout = 2 * time.Second

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	QueueDepth  int               `json:"queue_depth"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// HealthProbes feeds the health endpoint. Both fields are optional.
type HealthProbes struct {
	QueueDepth func() int
	Checks     map[string]func(context.Context) error
}

// HealthCheck reports the grading queue depth and the state of each backing
// dependency. Any failing check turns the response into a 503.
func HealthCheck(cfg config.Config, probes HealthProbes) fiber.Handler {
	names := make([]string, 0, len(probes.Checks))
	for name := range probes.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}
		if probes.QueueDepth != nil {
			payload.QueueDepth = probes.QueueDepth()
		}

		if len(names) > 0 {
			payload.Checks = make(map[string]string, len(names))
			ctx, cancel := context.WithTimeout(requestContext(c), healthProbeTimeout)
			defer cancel()
			for _, name := range names {
				if err := probes.Checks[name](ctx); err != nil {
					payload.Checks[name] = err.Error()
					payload.Status = "degraded"
					continue
				}
				payload.Checks[name] = "ok"
			}
		}

		if payload.Status != "ok" {
			return utils.Fail(c, fiber.StatusServiceUnavailable, "service degraded", payload)
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
