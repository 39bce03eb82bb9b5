package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shubham30034/coachingAppBackend/internal/config"
	"github.com/shubham30034/coachingAppBackend/internal/handlers"
	"github.com/shubham30034/coachingAppBackend/internal/middleware"
	"github.com/shubham30034/coachingAppBackend/internal/repository"
	"github.com/shubham30034/coachingAppBackend/internal/services"
	"go.uber.org/zap"
)

// Wiring is the service graph shared by the HTTP surface and the
// background scheduler.
type Wiring struct {
	ExpirationService *services.ExpirationService
	ReconcileService  *services.ReconcileService
}

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, logger *zap.Logger) *Wiring {
	availabilityRepo := repository.NewAvailabilityRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	rateRepo := repository.NewCoachRateRepository(db)
	meetingProvider := services.NewLinkMeetingProvider(cfg.MeetingBaseURL)

	materializer := services.NewMaterializerService(
		availabilityRepo,
		subscriptionRepo,
		sessionRepo,
		rateRepo,
		meetingProvider,
	)
	reconcileService := services.NewReconcileService(
		materializer,
		subscriptionRepo,
		sessionRepo,
		cfg.ReconcileWorkers,
		logger,
	)
	expirationService := services.NewExpirationService(subscriptionRepo, sessionRepo, logger)

	reconcileHandler := handlers.NewReconcileHandler(expirationService, reconcileService, cfg.LookaheadDays)
	sessionHandler := handlers.NewSessionHandler(sessionRepo, subscriptionRepo)

	api := app.Group("/api")
	admin := api.Group("/v1/admin", middleware.AuthRequired(cfg.JWTSecret), middleware.AdminRequired())

	reconcile := admin.Group("/reconcile")
	reconcile.Post("/window", reconcileHandler.RunWindow)
	reconcile.Post("/expirations", reconcileHandler.RunExpirations)
	reconcile.Post("/statuses", reconcileHandler.RefreshStatuses)

	coaches := admin.Group("/coaches")
	coaches.Get("/:coachId/sessions", sessionHandler.ListSessions)
	coaches.Get("/:coachId/subscriptions", sessionHandler.ListSubscriptions)

	return &Wiring{
		ExpirationService: expirationService,
		ReconcileService:  reconcileService,
	}
}
