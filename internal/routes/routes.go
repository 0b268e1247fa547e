package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/bootstrap"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/config"
	mw "github.com/zhizhunbao/gangwon-business-portal-sub000/internal/middleware"
)

// SetupRoutes configures the application routes.
func SetupRoutes(app *fiber.App, cfg *config.Config, logger *zap.Logger, components *bootstrap.AppComponents) {
	logger.Info("Setting up application routes...")

	// --- Public Routes ---

	// Health Check. Reports store connectivity plus the remote writer's
	// counters so queue pressure and drop rates are visible without a
	// metrics stack.
	app.Get("/health", func(c *fiber.Ctx) error {
		healthStatus := fiber.Map{"status": "healthy", "timestamp": time.Now().UTC()}

		pingCtx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		storeStatus := "connected"
		if err := components.Store.Ping(pingCtx); err != nil {
			storeStatus = "disconnected"
			logger.Warn("Health check: log store ping failed", zap.Error(err))
		}

		healthStatus["dependencies"] = fiber.Map{
			"log_store": fiber.Map{
				"driver": cfg.LogStoreDriver,
				"status": storeStatus,
			},
		}
		healthStatus["pipeline"] = components.Pipeline.Remote().Snapshot()
		healthStatus["active_traces"] = components.Manager.Active()
		return c.Status(fiber.StatusOK).JSON(healthStatus)
	})

	// --- API v1 Routes ---
	api := app.Group("/api/v1")

	// Administrative surface (Requires JWT Authentication)
	admin := api.Group("/admin", mw.Protected(cfg.JWTSecret))

	// Log query routes (read-only, any authenticated user)
	admin.Get("/logs", components.LogAdminHandler.List)
	admin.Get("/logs/:family/:id", components.LogAdminHandler.Detail)

	// Audit deletion routes (admin role only)
	admin.Delete("/audit/:id", mw.RequireAdmin(), components.AuditHandler.DeleteByID)
	admin.Delete("/audit", mw.RequireAdmin(), components.AuditHandler.DeleteByAction)
}
