package repository

import (
	"context"
	"time"

	"github.com/shubham30034/coachingAppBackend/internal/models"
)

type CreateSessionInput struct {
	CoachID          int64
	Date             time.Time
	StartTime        string
	EndTime          string
	Timezone         string
	Members          []int64
	Status           models.SessionStatus
	MeetingLink      string
	MeetingID        string
	FeeSnapshot      float64
	CurrencySnapshot string
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `
	id, coach_id, session_date, start_time, end_time, timezone, member_ids,
	status, meeting_link, meeting_id, fee_snapshot, currency_snapshot, created_at, updated_at
`

func scanSession(row interface{ Scan(dest ...any) error }) (*models.SessionInstance, error) {
	var session models.SessionInstance
	var status string
	err := row.Scan(
		&session.ID,
		&session.CoachID,
		&session.Date,
		&session.StartTime,
		&session.EndTime,
		&session.Timezone,
		&session.Members,
		&status,
		&session.MeetingLink,
		&session.MeetingID,
		&session.FeeSnapshot,
		&session.CurrencySnapshot,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	session.Status = models.SessionStatus(status)
	return &session, nil
}

// Create inserts a session instance. The unique index on
// (coach_id, session_date) makes a concurrent duplicate insert fail with a
// unique violation, which callers map to their conflict sentinel.
func (r *SessionRepository) Create(
	ctx context.Context,
	input CreateSessionInput,
) (*models.SessionInstance, error) {
	query := `
		INSERT INTO sessions (
			coach_id, session_date, start_time, end_time, timezone, member_ids,
			status, meeting_link, meeting_id, fee_snapshot, currency_snapshot
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + sessionColumns + `
	`

	return scanSession(r.db.QueryRow(
		ctx,
		query,
		input.CoachID,
		input.Date,
		input.StartTime,
		input.EndTime,
		input.Timezone,
		input.Members,
		string(input.Status),
		input.MeetingLink,
		input.MeetingID,
		input.FeeSnapshot,
		input.CurrencySnapshot,
	))
}

// GetByCoachAndDate returns the single session for the coach on the given
// calendar date. Returns pgx.ErrNoRows when none exists.
func (r *SessionRepository) GetByCoachAndDate(
	ctx context.Context,
	coachID int64,
	date time.Time,
) (*models.SessionInstance, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE coach_id = $1 AND session_date = $2::date
	`
	return scanSession(r.db.QueryRow(ctx, query, coachID, date))
}

func (r *SessionRepository) FindByMemberFromDate(
	ctx context.Context,
	clientID int64,
	fromDate time.Time,
) ([]models.SessionInstance, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE $1 = ANY(member_ids) AND session_date >= $2::date
		ORDER BY session_date ASC, id ASC
	`
	return r.querySessions(ctx, query, clientID, fromDate)
}

func (r *SessionRepository) ListByCoachFromDate(
	ctx context.Context,
	coachID int64,
	fromDate time.Time,
) ([]models.SessionInstance, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE coach_id = $1 AND session_date >= $2::date
		ORDER BY session_date ASC, id ASC
	`
	return r.querySessions(ctx, query, coachID, fromDate)
}

// ListUnfinishedThrough returns sessions dated on or before the given day
// whose stored status has not reached a terminal or externally-set state.
// Used by the periodic status refresh pass.
func (r *SessionRepository) ListUnfinishedThrough(
	ctx context.Context,
	throughDate time.Time,
) ([]models.SessionInstance, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE session_date <= $1::date AND status IN ('scheduled', 'ongoing')
		ORDER BY session_date ASC, id ASC
	`
	return r.querySessions(ctx, query, throughDate)
}

// RemoveMember drops the client from the session's member set in one atomic
// statement and returns the updated row.
func (r *SessionRepository) RemoveMember(
	ctx context.Context,
	sessionID int64,
	clientID int64,
) (*models.SessionInstance, error) {
	query := `
		UPDATE sessions
		SET member_ids = array_remove(member_ids, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns + `
	`
	return scanSession(r.db.QueryRow(ctx, query, sessionID, clientID))
}

// UpdateStatusIfCurrent is a compare-and-set on the status column. Returns
// pgx.ErrNoRows when the stored status no longer matches currentStatus.
func (r *SessionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	sessionID int64,
	currentStatus models.SessionStatus,
	nextStatus models.SessionStatus,
) (*models.SessionInstance, error) {
	query := `
		UPDATE sessions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + sessionColumns + `
	`
	return scanSession(r.db.QueryRow(ctx, query, sessionID, string(currentStatus), string(nextStatus)))
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	return err
}

func (r *SessionRepository) querySessions(
	ctx context.Context,
	query string,
	args ...any,
) ([]models.SessionInstance, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.SessionInstance, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}
