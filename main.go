package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"emailfinder/config"
	controller "emailfinder/controllers"
	"emailfinder/finder"
	"emailfinder/middleware"
	"emailfinder/routes"
	"emailfinder/utils"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve() error {
	if err := config.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := config.AppConfig

	logger := setupLogger(cfg)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			logger.WithError(err).Warn("Sentry initialization failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	source, err := finder.NewSource(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build discovery source: %w", err)
	}
	verifier := utils.NewVerifier(cfg.Verifier, logger)
	service := finder.NewService(source, verifier, cfg.Fusion, cfg.DiscoveryDeadline, logger)

	app := fiber.New(fiber.Config{
		AppName:      "emailfinder",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.DiscoveryDeadline + 10*time.Second,
	})

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.AllowedOrigins
	app.Use(middleware.CORS(cors))

	routes.SetupRoutes(app, cfg,
		controller.NewDiscoveryController(service, logger),
		controller.NewVerificationController(verifier, logger),
	)

	go func() {
		logger.Infof("🚀 Server starting on port %s", cfg.ServerPort)
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
	return nil
}

func setupLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.StandardLogger()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
