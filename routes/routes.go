package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"emailfinder/config"
	controller "emailfinder/controllers"
	"emailfinder/middleware"
)

// SetupRoutes registers the health check and the versioned API.
func SetupRoutes(app *fiber.App, cfg config.Config, discovery *controller.DiscoveryController, verification *controller.VerificationController) {
	app.Get("/health", discovery.Health)

	api := app.Group("/api/v1",
		logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}),
		middleware.Protected(cfg.JWTSecret),
		middleware.RateLimiter(cfg),
	)

	api.Post("/find-email", discovery.FindEmail)
	api.Post("/find-and-verify", discovery.FindAndVerify)
	api.Post("/verify-email", verification.VerifyEmail)
	api.Post("/verify-emails-batch", verification.VerifyBatch)
}
