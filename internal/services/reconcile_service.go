package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shubham30034/coachingAppBackend/internal/models"
	"go.uber.org/zap"
)

const DefaultLookaheadDays = 7

// FailedUnit records one (coach, date) pair the window run could not
// materialize, for retry visibility on the next run.
type FailedUnit struct {
	CoachID int64     `json:"coach_id"`
	Date    time.Time `json:"date"`
	Error   string    `json:"error"`
}

type WindowSummary struct {
	Created  int          `json:"created"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
	Failures []FailedUnit `json:"failures,omitempty"`
}

type activeCoachSource interface {
	ListCoachIDsWithActive(ctx context.Context) ([]int64, error)
}

type sessionStatusStore interface {
	ListUnfinishedThrough(ctx context.Context, throughDate time.Time) ([]models.SessionInstance, error)
	UpdateStatusIfCurrent(ctx context.Context, sessionID int64, currentStatus, nextStatus models.SessionStatus) (*models.SessionInstance, error)
}

type ReconcileService struct {
	materializer     *MaterializerService
	subscriptionRepo activeCoachSource
	sessionRepo      sessionStatusStore
	workers          int
	logger           *zap.Logger
}

func NewReconcileService(
	materializer *MaterializerService,
	subscriptionRepo activeCoachSource,
	sessionRepo sessionStatusStore,
	workers int,
	logger *zap.Logger,
) *ReconcileService {
	if workers <= 0 {
		workers = 4
	}
	return &ReconcileService{
		materializer:     materializer,
		subscriptionRepo: subscriptionRepo,
		sessionRepo:      sessionRepo,
		workers:          workers,
		logger:           logger,
	}
}

// ReconcileWindow materializes sessions for every coach holding an active
// subscription, for each day in [now, now+lookaheadDays). Per-coach work
// fans out over a bounded worker pool; one coach failing never aborts the
// rest of the window.
func (s *ReconcileService) ReconcileWindow(
	ctx context.Context,
	lookaheadDays int,
	now time.Time,
) (*WindowSummary, error) {
	if lookaheadDays <= 0 {
		lookaheadDays = DefaultLookaheadDays
	}

	coachIDs, err := s.subscriptionRepo.ListCoachIDsWithActive(ctx)
	if err != nil {
		return nil, err
	}

	summary := &WindowSummary{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.workers)

dispatch:
	for _, coachID := range coachIDs {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(coachID int64) {
			defer wg.Done()
			defer func() { <-sem }()
			coachSummary := s.reconcileCoach(ctx, coachID, lookaheadDays, now)
			mu.Lock()
			summary.Created += coachSummary.Created
			summary.Skipped += coachSummary.Skipped
			summary.Failed += coachSummary.Failed
			summary.Failures = append(summary.Failures, coachSummary.Failures...)
			mu.Unlock()
		}(coachID)
	}

	wg.Wait()
	s.logger.Info("window reconcile finished",
		zap.Int("coaches", len(coachIDs)),
		zap.Int("lookahead_days", lookaheadDays),
		zap.Int("created", summary.Created),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, ctx.Err()
}

func (s *ReconcileService) reconcileCoach(
	ctx context.Context,
	coachID int64,
	lookaheadDays int,
	now time.Time,
) *WindowSummary {
	summary := &WindowSummary{}
	for i := 0; i < lookaheadDays; i++ {
		if ctx.Err() != nil {
			return summary
		}
		day := now.AddDate(0, 0, i)

		result, err := s.materializer.Materialize(ctx, coachID, day, now)
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, FailedUnit{
				CoachID: coachID,
				Date:    day,
				Error:   err.Error(),
			})
			s.logger.Warn("materialize failed",
				zap.Int64("coach_id", coachID),
				zap.Time("date", day),
				zap.Error(err),
			)
			// A broken availability window fails identically for every day;
			// skip the rest of this coach's window.
			if errors.Is(err, ErrInvalidAvailability) || errors.Is(err, ErrNoRateConfigured) {
				return summary
			}
			continue
		}
		if result.Created {
			summary.Created++
			continue
		}
		summary.Skipped++
		// The whole window is a no-op for a coach with no availability row.
		if result.Skipped == SkipNoAvailability {
			summary.Skipped += lookaheadDays - i - 1
			return summary
		}
	}
	return summary
}

// RefreshStatuses advances stored scheduled/ongoing statuses for sessions
// whose window has started or elapsed. Compare-and-set per session, so a
// concurrent cancellation is never overwritten.
func (s *ReconcileService) RefreshStatuses(ctx context.Context, now time.Time) (int, error) {
	sessions, err := s.sessionRepo.ListUnfinishedThrough(ctx, now)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range sessions {
		session := &sessions[i]
		next := ResolveSessionStatus(session, now)
		if next == session.Status {
			continue
		}
		if _, err := s.sessionRepo.UpdateStatusIfCurrent(ctx, session.ID, session.Status, next); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			s.logger.Warn("status refresh failed",
				zap.Int64("session_id", session.ID),
				zap.Error(err),
			)
			continue
		}
		updated++
	}
	return updated, nil
}
