package services

import (
	"context"
	"time"

	"github.com/shubham30034/coachingAppBackend/internal/models"
	"github.com/shubham30034/coachingAppBackend/internal/repository"
	"go.uber.org/zap"
)

type FailedCleanup struct {
	ClientID  int64  `json:"client_id"`
	CoachID   int64  `json:"coach_id"`
	SessionID int64  `json:"session_id,omitempty"`
	Error     string `json:"error"`
}

type ExpirationSummary struct {
	SubscriptionsExpired int             `json:"subscriptions_expired"`
	MembersRemoved       int             `json:"members_removed"`
	SessionsDeleted      int             `json:"sessions_deleted"`
	Failed               int             `json:"failed"`
	Failures             []FailedCleanup `json:"failures,omitempty"`
}

type subscriptionExpirer interface {
	FindExpiredActive(ctx context.Context, now time.Time) ([]models.Subscription, error)
	Expire(ctx context.Context, subscriptionID int64, expiredAt time.Time, reason models.ExpirationReason) (bool, error)
	HasValidForClientCoachOnDate(ctx context.Context, clientID, coachID int64, date time.Time) (bool, error)
	FindLapsedMembers(ctx context.Context, now time.Time) ([]repository.LapsedMember, error)
}

type sessionMembershipStore interface {
	FindByMemberFromDate(ctx context.Context, clientID int64, fromDate time.Time) ([]models.SessionInstance, error)
	RemoveMember(ctx context.Context, sessionID, clientID int64) (*models.SessionInstance, error)
	Delete(ctx context.Context, sessionID int64) error
}

type ExpirationService struct {
	subscriptionRepo subscriptionExpirer
	sessionRepo      sessionMembershipStore
	logger           *zap.Logger
}

func NewExpirationService(
	subscriptionRepo subscriptionExpirer,
	sessionRepo sessionMembershipStore,
	logger *zap.Logger,
) *ExpirationService {
	return &ExpirationService{
		subscriptionRepo: subscriptionRepo,
		sessionRepo:      sessionRepo,
		logger:           logger,
	}
}

// ReconcileExpirations deactivates subscriptions past their end date, then
// strips lapsed clients out of sessions dated today or later. Sessions left
// with no members are deleted. The two steps are independently idempotent
// single-row writes; a crash between them is corrected by the next run.
func (s *ExpirationService) ReconcileExpirations(
	ctx context.Context,
	now time.Time,
	reason models.ExpirationReason,
) (*ExpirationSummary, error) {
	if reason == "" {
		reason = models.ExpirationReasonSubscriptionExpired
	}
	summary := &ExpirationSummary{}

	expired, err := s.subscriptionRepo.FindExpiredActive(ctx, now)
	if err != nil {
		return nil, err
	}

	lapsed := make(map[repository.LapsedMember]struct{}, len(expired))
	for _, subscription := range expired {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		changed, err := s.subscriptionRepo.Expire(ctx, subscription.ID, now, reason)
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, FailedCleanup{
				ClientID: subscription.ClientID,
				CoachID:  subscription.CoachID,
				Error:    err.Error(),
			})
			s.logger.Warn("subscription expire failed",
				zap.Int64("subscription_id", subscription.ID),
				zap.Error(err),
			)
			continue
		}
		if changed {
			summary.SubscriptionsExpired++
		}
		lapsed[repository.LapsedMember{ClientID: subscription.ClientID, CoachID: subscription.CoachID}] = struct{}{}
	}

	// Pick up membership left stale by earlier interrupted runs, where the
	// subscription was already deactivated but the session still lists the
	// client.
	staleMembers, err := s.subscriptionRepo.FindLapsedMembers(ctx, now)
	if err != nil {
		return summary, err
	}
	for _, member := range staleMembers {
		lapsed[member] = struct{}{}
	}

	for member := range lapsed {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		s.cleanupMember(ctx, member.ClientID, member.CoachID, now, summary)
	}

	s.logger.Info("expiration reconcile finished",
		zap.Int("subscriptions_expired", summary.SubscriptionsExpired),
		zap.Int("members_removed", summary.MembersRemoved),
		zap.Int("sessions_deleted", summary.SessionsDeleted),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// cleanupMember removes the client from this coach's sessions dated today
// or later, unless another subscription still covers the session's date.
// Past sessions are historical records and are never touched.
func (s *ExpirationService) cleanupMember(
	ctx context.Context,
	clientID int64,
	coachID int64,
	now time.Time,
	summary *ExpirationSummary,
) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sessions, err := s.sessionRepo.FindByMemberFromDate(ctx, clientID, today)
	if err != nil {
		summary.Failed++
		summary.Failures = append(summary.Failures, FailedCleanup{
			ClientID: clientID,
			CoachID:  coachID,
			Error:    err.Error(),
		})
		return
	}

	for i := range sessions {
		session := &sessions[i]
		if session.CoachID != coachID {
			continue
		}

		valid, err := s.subscriptionRepo.HasValidForClientCoachOnDate(ctx, clientID, coachID, session.Date)
		if err != nil {
			s.recordCleanupFailure(summary, clientID, coachID, session.ID, err)
			continue
		}
		if valid {
			continue
		}

		updated, err := s.sessionRepo.RemoveMember(ctx, session.ID, clientID)
		if err != nil {
			s.recordCleanupFailure(summary, clientID, coachID, session.ID, err)
			continue
		}
		summary.MembersRemoved++

		if len(updated.Members) == 0 {
			if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
				s.recordCleanupFailure(summary, clientID, coachID, session.ID, err)
				continue
			}
			summary.SessionsDeleted++
		}
	}
}

func (s *ExpirationService) recordCleanupFailure(
	summary *ExpirationSummary,
	clientID, coachID, sessionID int64,
	err error,
) {
	summary.Failed++
	summary.Failures = append(summary.Failures, FailedCleanup{
		ClientID:  clientID,
		CoachID:   coachID,
		SessionID: sessionID,
		Error:     err.Error(),
	})
	s.logger.Warn("membership cleanup failed",
		zap.Int64("client_id", clientID),
		zap.Int64("coach_id", coachID),
		zap.Int64("session_id", sessionID),
		zap.Error(err),
	)
}
