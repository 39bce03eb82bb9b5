package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shubham30034/coachingAppBackend/internal/models"
)

var ErrInvalidTimeWindow = errors.New("invalid session time window")

// ResolveStatus derives a session's lifecycle status from its start and end
// instants relative to now. It never produces cancelled or no-show; those
// are set by session-conduct events elsewhere.
func ResolveStatus(start, end, now time.Time) models.SessionStatus {
	switch {
	case now.Before(start):
		return models.SessionStatusScheduled
	case now.After(end):
		return models.SessionStatusCompleted
	default:
		return models.SessionStatusOngoing
	}
}

// SessionBounds converts a session's calendar date plus wall-clock window
// into concrete start and end instants in the session's timezone.
func SessionBounds(
	date time.Time,
	startTime, endTime, timezone string,
) (time.Time, time.Time, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTimeWindow, err)
	}

	startHour, startMinute, err := parseClock(startTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endHour, endMinute, err := parseClock(endTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	year, month, day := date.Date()
	start := time.Date(year, month, day, startHour, startMinute, 0, 0, location)
	end := time.Date(year, month, day, endHour, endMinute, 0, 0, location)
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %q not after start %q", ErrInvalidTimeWindow, endTime, startTime)
	}
	return start, end, nil
}

// ResolveSessionStatus recomputes the session's status for now. Cancelled
// and no-show are authoritative as stored; for the time-derived states the
// stored value is only a starting point and is recomputed here. A session
// whose window no longer parses keeps its stored status.
func ResolveSessionStatus(session *models.SessionInstance, now time.Time) models.SessionStatus {
	if session.Status == models.SessionStatusCancelled || session.Status == models.SessionStatusNoShow {
		return session.Status
	}
	start, end, err := SessionBounds(session.Date, session.StartTime, session.EndTime, session.Timezone)
	if err != nil {
		return session.Status
	}
	return ResolveStatus(start, end, now)
}

func parseClock(value string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidTimeWindow, value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidTimeWindow, value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidTimeWindow, value)
	}
	return hour, minute, nil
}
