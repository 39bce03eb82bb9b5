package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shubham30034/coachingAppBackend/internal/models"
	"github.com/shubham30034/coachingAppBackend/internal/services"
)

type expirationRunner interface {
	ReconcileExpirations(ctx context.Context, now time.Time, reason models.ExpirationReason) (*services.ExpirationSummary, error)
}

type windowRunner interface {
	ReconcileWindow(ctx context.Context, lookaheadDays int, now time.Time) (*services.WindowSummary, error)
	RefreshStatuses(ctx context.Context, now time.Time) (int, error)
}

type ReconcileHandler struct {
	expirationService expirationRunner
	reconcileService  windowRunner
	defaultLookahead  int
}

func NewReconcileHandler(
	expirationService *services.ExpirationService,
	reconcileService *services.ReconcileService,
	defaultLookahead int,
) *ReconcileHandler {
	if defaultLookahead <= 0 {
		defaultLookahead = services.DefaultLookaheadDays
	}
	return &ReconcileHandler{
		expirationService: expirationService,
		reconcileService:  reconcileService,
		defaultLookahead:  defaultLookahead,
	}
}

// RunWindow triggers one window reconcile. Intended for the external cron
// collaborator and for operators; the background scheduler runs the same
// cycle on its own.
func (h *ReconcileHandler) RunWindow(c *fiber.Ctx) error {
	days := h.defaultLookahead
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 90 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "days must be between 1 and 90"})
		}
		days = parsed
	}

	summary, err := h.reconcileService.ReconcileWindow(c.Context(), days, time.Now().UTC())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Reconcile run failed"})
	}
	return c.JSON(fiber.Map{"summary": summary})
}

func (h *ReconcileHandler) RunExpirations(c *fiber.Ctx) error {
	reason := models.ExpirationReasonManualCleanup
	switch strings.TrimSpace(c.Query("reason")) {
	case "", "manual_cleanup":
	case "subscription_expired":
		reason = models.ExpirationReasonSubscriptionExpired
	case "automatic_expiration":
		reason = models.ExpirationReasonAutomatic
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid expiration reason"})
	}

	summary, err := h.expirationService.ReconcileExpirations(c.Context(), time.Now().UTC(), reason)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Expiration run failed"})
	}
	return c.JSON(fiber.Map{"summary": summary})
}

func (h *ReconcileHandler) RefreshStatuses(c *fiber.Ctx) error {
	updated, err := h.reconcileService.RefreshStatuses(c.Context(), time.Now().UTC())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Status refresh failed"})
	}
	return c.JSON(fiber.Map{"updated": updated})
}
