package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shubham30034/coachingAppBackend/internal/app"
	"github.com/shubham30034/coachingAppBackend/internal/config"
	"github.com/shubham30034/coachingAppBackend/internal/database"
	"github.com/shubham30034/coachingAppBackend/internal/routes"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	pool, err := database.Connect(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	fiberApp := fiber.New()
	fiberApp.Use(cors.New())
	fiberApp.Use(logger.New())
	fiberApp.Use(recover.New())

	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	wiring := routes.RegisterRoutes(fiberApp, cfg, pool, zapLogger)

	scheduler := app.NewScheduler(
		wiring.ExpirationService,
		wiring.ReconcileService,
		cfg.LookaheadDays,
		cfg.ReconcileInterval,
		zapLogger,
	)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		<-ctx.Done()
		_ = fiberApp.Shutdown()
	}()

	zapLogger.Info("server starting", zap.String("port", cfg.Port))
	if err := fiberApp.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
