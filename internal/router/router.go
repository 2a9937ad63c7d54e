package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/penmark/hweval-api/internal/config"
	"github.com/penmark/hweval-api/internal/handler"
	"github.com/penmark/hweval-api/internal/middleware"
	"github.com/penmark/hweval-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	HomeworkSetHandler *handler.HomeworkSetHandler
	EvaluationHandler  *handler.EvaluationHandler
	ReportHandler      *handler.ReportHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Baseline and AI records shape every downstream verdict, so mutating
	// them is reserved for reviewers.
	reviewerOnly := middleware.RequireRole("admin", "reviewer")

	if deps.HomeworkSetHandler != nil {
		sets := api.Group("/homework-sets", jwtMiddleware)
		deps.HomeworkSetHandler.Register(sets, reviewerOnly)

		if deps.EvaluationHandler != nil {
			// Each run fans out adjudicator calls, so triggers are
			// throttled per user.
			startLimit := middleware.RateLimit("evaluation-start", cfg.EvalStartPerMinute, time.Minute)
			deps.EvaluationHandler.RegisterStart(sets, startLimit)
		}
	}

	if deps.EvaluationHandler != nil {
		evaluations := api.Group("/evaluations", jwtMiddleware)
		deps.EvaluationHandler.Register(evaluations)
	}

	if deps.ReportHandler != nil {
		reports := api.Group("/reports", jwtMiddleware)
		deps.ReportHandler.Register(reports)
	}
}
