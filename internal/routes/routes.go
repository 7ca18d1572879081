package routes

import (
	"github.com/botpanel/core/internal/config"
	"github.com/botpanel/core/internal/handlers"
	"github.com/botpanel/core/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	cronHandler *handlers.CronHandler,
	systemHandler *handlers.SystemHandler,
) {
	// ─── Public ──────────────────────────────────────────────────────────
	app.Get("/api/health", systemHandler.Health)

	// ─── Auth ────────────────────────────────────────────────────────────
	app.Post("/api/auth/login", authHandler.Login)
	app.Post("/api/auth/refresh", authHandler.Refresh)

	// ─── Protected routes ────────────────────────────────────────────────
	api := app.Group("/api", middleware.JWTProtected(cfg.JWTSecret))

	// Auth (protected)
	api.Get("/auth/me", authHandler.Me)
	api.Put("/auth/password", authHandler.ChangePassword)

	// Cron jobs
	api.Get("/cron/overview", cronHandler.Overview)
	api.Get("/cron/jobs", cronHandler.ListJobs)
	api.Post("/cron/jobs", cronHandler.CreateJob)
	api.Get("/cron/jobs/:id", cronHandler.GetJob)
	api.Put("/cron/jobs/:id", cronHandler.UpdateJob)
	api.Delete("/cron/jobs/:id", cronHandler.DeleteJob)
	api.Post("/cron/jobs/:id/test", cronHandler.TestJob)
	api.Get("/cron/jobs/:id/executions", cronHandler.GetExecutions)
	api.Get("/cron/jobs/:id/commands", cronHandler.GetCommands)

	// Templates
	api.Get("/cron/templates", cronHandler.ListTemplates)
	api.Post("/cron/templates/install", cronHandler.InstallTemplate)
}
