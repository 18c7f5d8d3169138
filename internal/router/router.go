package router

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grader/internal/config"
	"github.com/noah-isme/gema-grader/internal/handler"
	"github.com/noah-isme/gema-grader/internal/middleware"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler  *handler.SubmissionHandler
	AssignmentHandler  *handler.AssignmentHandler
	StatisticsHandler  *handler.StatisticsHandler
	ClassReportHandler *handler.ClassReportHandler
	RosterHandler      *handler.RosterHandler
	JWTMiddleware      fiber.Handler
	UploadLimiter      fiber.Handler
	QueueDepth         func() int
	HealthChecks       map[string]func(context.Context) error
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, handler.HealthProbes{
		QueueDepth: deps.QueueDepth,
		Checks:     deps.HealthChecks,
	}))
	api.Get("/metrics", observability.MetricsHandler(deps.QueueDepth))

	if deps.RosterHandler != nil {
		deps.RosterHandler.Register(api.Group("/roster"))
	}

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SubmissionHandler != nil {
		var guards []fiber.Handler
		if deps.UploadLimiter != nil {
			guards = append(guards, deps.UploadLimiter)
		}

		submissions := api.Group("/submissions", jwtMiddleware, middleware.RequireRole(models.RoleStudent, models.RoleTeacher))
		deps.SubmissionHandler.Register(submissions, guards...)
	}

	assignments := api.Group("/assignments", jwtMiddleware, middleware.RequireRole(models.RoleTeacher))
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(assignments)
	}
	if deps.StatisticsHandler != nil {
		deps.StatisticsHandler.Register(assignments)
	}
	if deps.ClassReportHandler != nil {
		deps.ClassReportHandler.Register(assignments)
	}
}
