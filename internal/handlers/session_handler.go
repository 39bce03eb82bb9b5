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

type sessionReader interface {
	ListByCoachFromDate(ctx context.Context, coachID int64, fromDate time.Time) ([]models.SessionInstance, error)
}

type subscriptionLister interface {
	FindActiveForCoach(ctx context.Context, coachID int64) ([]models.Subscription, error)
}

type SessionHandler struct {
	sessionRepo      sessionReader
	subscriptionRepo subscriptionLister
}

func NewSessionHandler(sessionRepo sessionReader, subscriptionRepo subscriptionLister) *SessionHandler {
	return &SessionHandler{sessionRepo: sessionRepo, subscriptionRepo: subscriptionRepo}
}

// ListSessions returns a coach's materialized sessions from a given date.
// Status is recomputed against the current time on the way out, so stale
// stored statuses never leak to clients.
func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	coachID, err := parseCoachID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
	}

	from := time.Now().UTC()
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "from must be a YYYY-MM-DD date"})
		}
		from = parsed
	}

	sessions, err := h.sessionRepo.ListByCoachFromDate(c.Context(), coachID, from)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list sessions"})
	}

	now := time.Now().UTC()
	for i := range sessions {
		sessions[i].Status = services.ResolveSessionStatus(&sessions[i], now)
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) ListSubscriptions(c *fiber.Ctx) error {
	coachID, err := parseCoachID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
	}

	subscriptions, err := h.subscriptionRepo.FindActiveForCoach(c.Context(), coachID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list subscriptions"})
	}

	return c.JSON(fiber.Map{"subscriptions": subscriptions})
}

func parseCoachID(c *fiber.Ctx) (int64, error) {
	coachID, err := strconv.ParseInt(c.Params("coachId"), 10, 64)
	if err != nil || coachID <= 0 {
		return 0, strconv.ErrRange
	}
	return coachID, nil
}
