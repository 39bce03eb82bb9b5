package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/shubham30034/coachingAppBackend/internal/config"
	"github.com/shubham30034/coachingAppBackend/internal/database"
	"github.com/shubham30034/coachingAppBackend/internal/models"
	"github.com/shubham30034/coachingAppBackend/internal/repository"
	"github.com/shubham30034/coachingAppBackend/internal/services"
	"go.uber.org/zap"
)

// One-shot reconcile run for cron. Expirations go first so the window pass
// never materializes sessions from stale active subscriptions.
func main() {
	days := flag.Int("days", 0, "lookahead window in days (defaults to RECONCILE_LOOKAHEAD_DAYS)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	availabilityRepo := repository.NewAvailabilityRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	rateRepo := repository.NewCoachRateRepository(pool)

	materializer := services.NewMaterializerService(
		availabilityRepo,
		subscriptionRepo,
		sessionRepo,
		rateRepo,
		services.NewLinkMeetingProvider(cfg.MeetingBaseURL),
	)
	reconcileService := services.NewReconcileService(
		materializer,
		subscriptionRepo,
		sessionRepo,
		cfg.ReconcileWorkers,
		zapLogger,
	)
	expirationService := services.NewExpirationService(subscriptionRepo, sessionRepo, zapLogger)

	now := time.Now().UTC()
	lookahead := cfg.LookaheadDays
	if *days > 0 {
		lookahead = *days
	}

	if _, err := expirationService.ReconcileExpirations(ctx, now, models.ExpirationReasonAutomatic); err != nil {
		zapLogger.Fatal("expiration reconcile failed", zap.Error(err))
	}
	if _, err := reconcileService.ReconcileWindow(ctx, lookahead, now); err != nil {
		zapLogger.Fatal("window reconcile failed", zap.Error(err))
	}
	if _, err := reconcileService.RefreshStatuses(ctx, now); err != nil {
		zapLogger.Fatal("status refresh failed", zap.Error(err))
	}
}
