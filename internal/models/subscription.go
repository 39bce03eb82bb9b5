package models

import "time"

type ExpirationReason string

const (
	ExpirationReasonSubscriptionExpired ExpirationReason = "subscription_expired"
	ExpirationReasonManualCleanup       ExpirationReason = "manual_cleanup"
	ExpirationReasonAutomatic           ExpirationReason = "automatic_expiration"
)

type Subscription struct {
	ID               int64             `json:"id"`
	ClientID         int64             `json:"client_id"`
	CoachID          int64             `json:"coach_id"`
	StartDate        time.Time         `json:"start_date"`
	EndDate          time.Time         `json:"end_date"`
	Active           bool              `json:"active"`
	MonthlyFee       float64           `json:"monthly_fee"`
	Currency         string            `json:"currency"`
	ExpiredAt        *time.Time        `json:"expired_at"`
	ExpirationReason *ExpirationReason `json:"expiration_reason"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// CoversDate reports whether the subscription's inclusive date range
// contains the given calendar date. It ignores the active flag.
func (s *Subscription) CoversDate(date time.Time) bool {
	day := date.Truncate(24 * time.Hour)
	return !day.Before(s.StartDate.Truncate(24*time.Hour)) &&
		!day.After(s.EndDate.Truncate(24*time.Hour))
}
