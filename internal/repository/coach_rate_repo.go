package repository

import (
	"context"

	"github.com/shubham30034/coachingAppBackend/internal/models"
)

type CoachRateRepository struct {
	db DBTX
}

func NewCoachRateRepository(db DBTX) *CoachRateRepository {
	return &CoachRateRepository{db: db}
}

// GetByCoachID returns the coach's configured per-session fee.
// Returns pgx.ErrNoRows when no rate has been configured.
func (r *CoachRateRepository) GetByCoachID(
	ctx context.Context,
	coachID int64,
) (*models.CoachRate, error) {
	query := `
		SELECT coach_id, session_fee, currency, updated_at
		FROM coach_rates
		WHERE coach_id = $1
	`

	var rate models.CoachRate
	err := r.db.QueryRow(ctx, query, coachID).Scan(
		&rate.CoachID,
		&rate.SessionFee,
		&rate.Currency,
		&rate.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rate, nil
}
