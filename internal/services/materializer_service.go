package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shubham30034/coachingAppBackend/internal/models"
	"github.com/shubham30034/coachingAppBackend/internal/repository"
)

var (
	ErrInvalidAvailability = errors.New("invalid availability window")
	ErrNoRateConfigured    = errors.New("coach has no session fee configured")
)

// SkipReason explains why Materialize declined to create a session. A skip
// is a deliberate no-op, not a failure.
type SkipReason string

const (
	SkipNoAvailability      SkipReason = "no_availability"
	SkipDayNotScheduled     SkipReason = "day_not_scheduled"
	SkipNoValidSubscription SkipReason = "no_valid_subscription"
	SkipAlreadyExists       SkipReason = "already_exists"
)

type MaterializeResult struct {
	Created bool
	Skipped SkipReason
	Session *models.SessionInstance
}

type availabilityReader interface {
	GetActiveByCoach(ctx context.Context, coachID int64) (*models.CoachAvailability, error)
}

type rateReader interface {
	GetByCoachID(ctx context.Context, coachID int64) (*models.CoachRate, error)
}

type subscriptionDateReader interface {
	FindValidForCoachOnDate(ctx context.Context, coachID int64, date time.Time) ([]models.Subscription, error)
}

type sessionCreator interface {
	GetByCoachAndDate(ctx context.Context, coachID int64, date time.Time) (*models.SessionInstance, error)
	Create(ctx context.Context, input repository.CreateSessionInput) (*models.SessionInstance, error)
}

type MaterializerService struct {
	availabilityRepo availabilityReader
	subscriptionRepo subscriptionDateReader
	sessionRepo      sessionCreator
	rateRepo         rateReader
	meetingProvider  MeetingProvider
}

func NewMaterializerService(
	availabilityRepo availabilityReader,
	subscriptionRepo subscriptionDateReader,
	sessionRepo sessionCreator,
	rateRepo rateReader,
	meetingProvider MeetingProvider,
) *MaterializerService {
	return &MaterializerService{
		availabilityRepo: availabilityRepo,
		subscriptionRepo: subscriptionRepo,
		sessionRepo:      sessionRepo,
		rateRepo:         rateRepo,
		meetingProvider:  meetingProvider,
	}
}

// Materialize decides whether a session must exist for the coach on the
// given calendar day and creates it if so. Re-running for an already
// materialized day is a no-op, as is any unmet precondition.
func (s *MaterializerService) Materialize(
	ctx context.Context,
	coachID int64,
	day time.Time,
	now time.Time,
) (*MaterializeResult, error) {
	availability, err := s.availabilityRepo.GetActiveByCoach(ctx, coachID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &MaterializeResult{Skipped: SkipNoAvailability}, nil
		}
		return nil, err
	}
	if availability.StartTime == "" || availability.EndTime == "" {
		return nil, ErrInvalidAvailability
	}

	location, err := time.LoadLocation(availability.Timezone)
	if err != nil {
		return nil, ErrInvalidAvailability
	}

	// Identity and weekday are both taken from the coach's local calendar,
	// not the caller's.
	local := day.In(location)
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	if !availability.HasDay(local.Weekday()) {
		return &MaterializeResult{Skipped: SkipDayNotScheduled}, nil
	}

	subscriptions, err := s.subscriptionRepo.FindValidForCoachOnDate(ctx, coachID, date)
	if err != nil {
		return nil, err
	}
	if len(subscriptions) == 0 {
		return &MaterializeResult{Skipped: SkipNoValidSubscription}, nil
	}

	if _, err := s.sessionRepo.GetByCoachAndDate(ctx, coachID, date); err == nil {
		return &MaterializeResult{Skipped: SkipAlreadyExists}, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	rate, err := s.rateRepo.GetByCoachID(ctx, coachID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRateConfigured
		}
		return nil, err
	}

	start, end, err := SessionBounds(date, availability.StartTime, availability.EndTime, availability.Timezone)
	if err != nil {
		return nil, errors.Join(ErrInvalidAvailability, err)
	}

	meetingLink, meetingID, err := s.meetingProvider.IssueMeeting(ctx, coachID, date)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.Create(ctx, repository.CreateSessionInput{
		CoachID:          coachID,
		Date:             date,
		StartTime:        availability.StartTime,
		EndTime:          availability.EndTime,
		Timezone:         availability.Timezone,
		Members:          memberSet(subscriptions),
		Status:           ResolveStatus(start, end, now),
		MeetingLink:      meetingLink,
		MeetingID:        meetingID,
		FeeSnapshot:      rate.SessionFee,
		CurrencySnapshot: rate.Currency,
	})
	if err != nil {
		// A concurrent run won the insert race; the existing session wins.
		if isUniqueViolation(err) {
			return &MaterializeResult{Skipped: SkipAlreadyExists}, nil
		}
		return nil, err
	}

	return &MaterializeResult{Created: true, Session: session}, nil
}

func memberSet(subscriptions []models.Subscription) []int64 {
	seen := make(map[int64]struct{}, len(subscriptions))
	members := make([]int64, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		if _, ok := seen[subscription.ClientID]; ok {
			continue
		}
		seen[subscription.ClientID] = struct{}{}
		members = append(members, subscription.ClientID)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
