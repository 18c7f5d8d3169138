package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/internal/config"
	"github.com/noah-isme/gema-grader/internal/handler"
)

func TestHealthCheckReportsDependencies(t *testing.T) {
	redisDown := errors.New("connection refused")
	app := fiber.New()
	app.Get("/health", handler.HealthCheck(config.Config{AppName: "grader"}, handler.HealthProbes{
		QueueDepth: func() int { return 4 },
		Checks: map[string]func(context.Context) error{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return redisDown },
		},
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var payload struct {
		Details handler.HealthResponse `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "degraded", payload.Details.Status)
	require.Equal(t, 4, payload.Details.QueueDepth)
	require.Equal(t, "ok", payload.Details.Checks["database"])
	require.Equal(t, "connection refused", payload.Details.Checks["redis"])
}
