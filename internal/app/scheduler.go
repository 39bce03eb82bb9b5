package app

import (
	"context"
	"time"

	"github.com/shubham30034/coachingAppBackend/internal/models"
	"github.com/shubham30034/coachingAppBackend/internal/services"
	"go.uber.org/zap"
)

// Scheduler periodically runs the reconcile cycle in the background:
// expirations first, so materialization never reads stale active
// subscriptions, then the lookahead window, then the status refresh pass.
type Scheduler struct {
	expirationService *services.ExpirationService
	reconcileService  *services.ReconcileService
	lookaheadDays     int
	interval          time.Duration
	logger            *zap.Logger
	stopChan          chan struct{}
}

func NewScheduler(
	expirationService *services.ExpirationService,
	reconcileService *services.ReconcileService,
	lookaheadDays int,
	interval time.Duration,
	logger *zap.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		expirationService: expirationService,
		reconcileService:  reconcileService,
		lookaheadDays:     lookaheadDays,
		interval:          interval,
		logger:            logger,
		stopChan:          make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting background reconcile scheduler",
		zap.Duration("interval", s.interval),
		zap.Int("lookahead_days", s.lookaheadDays),
	)
	go s.run(ctx)
}

func (s *Scheduler) Stop() {
	s.logger.Info("stopping background reconcile scheduler")
	close(s.stopChan)
}

func (s *Scheduler) run(ctx context.Context) {
	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runCycle(ctx)
		case <-s.stopChan:
			s.logger.Info("reconcile scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("reconcile scheduler cancelled")
			return
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	now := time.Now().UTC()

	if _, err := s.expirationService.ReconcileExpirations(ctx, now, models.ExpirationReasonAutomatic); err != nil {
		s.logger.Error("expiration reconcile failed", zap.Error(err))
	}
	if _, err := s.reconcileService.ReconcileWindow(ctx, s.lookaheadDays, now); err != nil {
		s.logger.Error("window reconcile failed", zap.Error(err))
	}
	if _, err := s.reconcileService.RefreshStatuses(ctx, now); err != nil {
		s.logger.Error("status refresh failed", zap.Error(err))
	}
}
