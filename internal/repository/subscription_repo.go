package repository

import (
	"context"
	"time"

	"github.com/shubham30034/coachingAppBackend/internal/models"
)

// LapsedMember is a (client, coach) pair whose subscription has lapsed but
// who is still listed as a member of an upcoming session for that coach.
type LapsedMember struct {
	ClientID int64
	CoachID  int64
}

type SubscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `
	id, client_id, coach_id, start_date, end_date, active,
	monthly_fee, currency, expired_at, expiration_reason, created_at, updated_at
`

func scanSubscription(row interface{ Scan(dest ...any) error }) (*models.Subscription, error) {
	var subscription models.Subscription
	var reason *string
	err := row.Scan(
		&subscription.ID,
		&subscription.ClientID,
		&subscription.CoachID,
		&subscription.StartDate,
		&subscription.EndDate,
		&subscription.Active,
		&subscription.MonthlyFee,
		&subscription.Currency,
		&subscription.ExpiredAt,
		&reason,
		&subscription.CreatedAt,
		&subscription.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reason != nil {
		expirationReason := models.ExpirationReason(*reason)
		subscription.ExpirationReason = &expirationReason
	}
	return &subscription, nil
}

// ListCoachIDsWithActive returns the distinct coaches holding at least one
// active subscription, regardless of the subscription's date range.
func (r *SubscriptionRepository) ListCoachIDsWithActive(ctx context.Context) ([]int64, error) {
	query := `
		SELECT DISTINCT coach_id
		FROM subscriptions
		WHERE active = TRUE
		ORDER BY coach_id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coachIDs := make([]int64, 0)
	for rows.Next() {
		var coachID int64
		if err := rows.Scan(&coachID); err != nil {
			return nil, err
		}
		coachIDs = append(coachIDs, coachID)
	}
	return coachIDs, rows.Err()
}

func (r *SubscriptionRepository) FindActiveForCoach(
	ctx context.Context,
	coachID int64,
) ([]models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE coach_id = $1 AND active = TRUE
		ORDER BY id
	`
	return r.querySubscriptions(ctx, query, coachID)
}

// FindValidForCoachOnDate returns subscriptions that are active and whose
// inclusive [start_date, end_date] range contains the given calendar date.
func (r *SubscriptionRepository) FindValidForCoachOnDate(
	ctx context.Context,
	coachID int64,
	date time.Time,
) ([]models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE coach_id = $1
		  AND active = TRUE
		  AND start_date <= $2::date
		  AND end_date >= $2::date
		ORDER BY id
	`
	return r.querySubscriptions(ctx, query, coachID, date)
}

// FindExpiredActive returns subscriptions still flagged active whose end
// date is strictly before the given day.
func (r *SubscriptionRepository) FindExpiredActive(
	ctx context.Context,
	now time.Time,
) ([]models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE active = TRUE AND end_date < $1::date
		ORDER BY id
	`
	return r.querySubscriptions(ctx, query, now)
}

// Expire deactivates a subscription. The WHERE clause keeps the write
// idempotent: a second call for the same id changes nothing and reports false.
func (r *SubscriptionRepository) Expire(
	ctx context.Context,
	subscriptionID int64,
	expiredAt time.Time,
	reason models.ExpirationReason,
) (bool, error) {
	query := `
		UPDATE subscriptions
		SET active = FALSE, expired_at = $2, expiration_reason = $3, updated_at = NOW()
		WHERE id = $1 AND active = TRUE
	`
	tag, err := r.db.Exec(ctx, query, subscriptionID, expiredAt, string(reason))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// HasValidForClientCoachOnDate reports whether the client holds any active
// subscription with this coach covering the given date. Used before pulling
// a member out of a session, so a renewed client is left in place.
func (r *SubscriptionRepository) HasValidForClientCoachOnDate(
	ctx context.Context,
	clientID int64,
	coachID int64,
	date time.Time,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM subscriptions
			WHERE client_id = $1
			  AND coach_id = $2
			  AND active = TRUE
			  AND start_date <= $3::date
			  AND end_date >= $3::date
		)
	`
	var valid bool
	if err := r.db.QueryRow(ctx, query, clientID, coachID, date).Scan(&valid); err != nil {
		return false, err
	}
	return valid, nil
}

// FindLapsedMembers returns (client, coach) pairs whose subscription lapsed
// before the given day but who still appear in a session dated on or after
// it. Covers cleanup left unfinished by a crashed or interrupted run.
func (r *SubscriptionRepository) FindLapsedMembers(
	ctx context.Context,
	now time.Time,
) ([]LapsedMember, error) {
	query := `
		SELECT DISTINCT sub.client_id, sub.coach_id
		FROM subscriptions sub
		WHERE sub.active = FALSE
		  AND sub.end_date < $1::date
		  AND NOT EXISTS (
			SELECT 1
			FROM subscriptions valid
			WHERE valid.client_id = sub.client_id
			  AND valid.coach_id = sub.coach_id
			  AND valid.active = TRUE
		  )
		  AND EXISTS (
			SELECT 1
			FROM sessions s
			WHERE s.coach_id = sub.coach_id
			  AND s.session_date >= $1::date
			  AND sub.client_id = ANY(s.member_ids)
		  )
		ORDER BY sub.client_id, sub.coach_id
	`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]LapsedMember, 0)
	for rows.Next() {
		var member LapsedMember
		if err := rows.Scan(&member.ClientID, &member.CoachID); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (r *SubscriptionRepository) querySubscriptions(
	ctx context.Context,
	query string,
	args ...any,
) ([]models.Subscription, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subscriptions := make([]models.Subscription, 0)
	for rows.Next() {
		subscription, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, *subscription)
	}
	return subscriptions, rows.Err()
}
