package repository

import (
	"context"
	"time"

	"github.com/shubham30034/coachingAppBackend/internal/models"
)

type AvailabilityRepository struct {
	db DBTX
}

func NewAvailabilityRepository(db DBTX) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// GetActiveByCoach returns the coach's single active availability record.
// Returns pgx.ErrNoRows when the coach has none.
func (r *AvailabilityRepository) GetActiveByCoach(
	ctx context.Context,
	coachID int64,
) (*models.CoachAvailability, error) {
	query := `
		SELECT id, coach_id, days, start_time, end_time, timezone, active, created_at, updated_at
		FROM coach_availabilities
		WHERE coach_id = $1 AND active = TRUE
	`

	var availability models.CoachAvailability
	var days []int32
	err := r.db.QueryRow(ctx, query, coachID).Scan(
		&availability.ID,
		&availability.CoachID,
		&days,
		&availability.StartTime,
		&availability.EndTime,
		&availability.Timezone,
		&availability.Active,
		&availability.CreatedAt,
		&availability.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	availability.Days = make([]time.Weekday, 0, len(days))
	for _, day := range days {
		availability.Days = append(availability.Days, time.Weekday(day))
	}
	return &availability, nil
}
