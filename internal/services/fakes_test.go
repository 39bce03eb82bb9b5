package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shubham30034/coachingAppBackend/internal/models"
	"github.com/shubham30034/coachingAppBackend/internal/repository"
)

// fakeStore is an in-memory stand-in for all four repositories, safe for
// the window reconciler's concurrent workers.
type fakeStore struct {
	mu sync.Mutex

	availabilities map[int64]*models.CoachAvailability
	rates          map[int64]*models.CoachRate
	subscriptions  map[int64]*models.Subscription
	sessions       map[int64]*models.SessionInstance

	nextSessionID int64

	// forcedCreateConflicts makes the next N session creates fail with a
	// unique violation, simulating a concurrent run winning the insert race.
	forcedCreateConflicts int

	subscriptionQueryErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		availabilities: make(map[int64]*models.CoachAvailability),
		rates:          make(map[int64]*models.CoachRate),
		subscriptions:  make(map[int64]*models.Subscription),
		sessions:       make(map[int64]*models.SessionInstance),
	}
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (f *fakeStore) addAvailability(a models.CoachAvailability) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availabilities[a.CoachID] = &a
}

func (f *fakeStore) addRate(r models.CoachRate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates[r.CoachID] = &r
}

func (f *fakeStore) addSubscription(s models.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriptions[s.ID] = &s
}

func (f *fakeStore) addSession(s models.SessionInstance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == 0 {
		f.nextSessionID++
		s.ID = f.nextSessionID
	} else if s.ID > f.nextSessionID {
		f.nextSessionID = s.ID
	}
	f.sessions[s.ID] = &s
}

func (f *fakeStore) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func (f *fakeStore) sessionFor(coachID int64, date time.Time) *models.SessionInstance {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, session := range f.sessions {
		if session.CoachID == coachID && session.Date.Equal(dateOf(date)) {
			copied := *session
			return &copied
		}
	}
	return nil
}

func (f *fakeStore) subscriptionByID(id int64) *models.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subscriptions[id]; ok {
		copied := *sub
		return &copied
	}
	return nil
}

// availabilityReader

func (f *fakeStore) GetActiveByCoach(_ context.Context, coachID int64) (*models.CoachAvailability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	availability, ok := f.availabilities[coachID]
	if !ok || !availability.Active {
		return nil, pgx.ErrNoRows
	}
	copied := *availability
	return &copied, nil
}

// rateReader

func (f *fakeStore) GetByCoachID(_ context.Context, coachID int64) (*models.CoachRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rate, ok := f.rates[coachID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *rate
	return &copied, nil
}

// subscription methods

func (f *fakeStore) FindValidForCoachOnDate(_ context.Context, coachID int64, date time.Time) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscriptionQueryErr != nil {
		return nil, f.subscriptionQueryErr
	}
	matched := make([]models.Subscription, 0)
	for _, sub := range f.subscriptions {
		if sub.CoachID == coachID && sub.Active && sub.CoversDate(date) {
			matched = append(matched, *sub)
		}
	}
	return matched, nil
}

func (f *fakeStore) ListCoachIDsWithActive(_ context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[int64]struct{})
	coachIDs := make([]int64, 0)
	for _, sub := range f.subscriptions {
		if !sub.Active {
			continue
		}
		if _, ok := seen[sub.CoachID]; ok {
			continue
		}
		seen[sub.CoachID] = struct{}{}
		coachIDs = append(coachIDs, sub.CoachID)
	}
	return coachIDs, nil
}

func (f *fakeStore) FindExpiredActive(_ context.Context, now time.Time) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]models.Subscription, 0)
	for _, sub := range f.subscriptions {
		if sub.Active && dateOf(sub.EndDate).Before(dateOf(now)) {
			matched = append(matched, *sub)
		}
	}
	return matched, nil
}

func (f *fakeStore) Expire(_ context.Context, subscriptionID int64, expiredAt time.Time, reason models.ExpirationReason) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subscriptions[subscriptionID]
	if !ok || !sub.Active {
		return false, nil
	}
	sub.Active = false
	sub.ExpiredAt = &expiredAt
	sub.ExpirationReason = &reason
	return true, nil
}

func (f *fakeStore) HasValidForClientCoachOnDate(_ context.Context, clientID, coachID int64, date time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subscriptions {
		if sub.ClientID == clientID && sub.CoachID == coachID && sub.Active && sub.CoversDate(date) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) FindLapsedMembers(_ context.Context, now time.Time) ([]repository.LapsedMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	today := dateOf(now)
	seen := make(map[repository.LapsedMember]struct{})
	members := make([]repository.LapsedMember, 0)
	for _, sub := range f.subscriptions {
		if sub.Active || !dateOf(sub.EndDate).Before(today) {
			continue
		}
		pair := repository.LapsedMember{ClientID: sub.ClientID, CoachID: sub.CoachID}
		if _, ok := seen[pair]; ok {
			continue
		}
		if f.hasActiveLocked(sub.ClientID, sub.CoachID) {
			continue
		}
		if !f.hasUpcomingMembershipLocked(sub.ClientID, sub.CoachID, today) {
			continue
		}
		seen[pair] = struct{}{}
		members = append(members, pair)
	}
	return members, nil
}

func (f *fakeStore) hasActiveLocked(clientID, coachID int64) bool {
	for _, sub := range f.subscriptions {
		if sub.ClientID == clientID && sub.CoachID == coachID && sub.Active {
			return true
		}
	}
	return false
}

func (f *fakeStore) hasUpcomingMembershipLocked(clientID, coachID int64, today time.Time) bool {
	for _, session := range f.sessions {
		if session.CoachID == coachID && !session.Date.Before(today) && session.HasMember(clientID) {
			return true
		}
	}
	return false
}

// session methods

func (f *fakeStore) GetByCoachAndDate(_ context.Context, coachID int64, date time.Time) (*models.SessionInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, session := range f.sessions {
		if session.CoachID == coachID && session.Date.Equal(dateOf(date)) {
			copied := *session
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) Create(_ context.Context, input repository.CreateSessionInput) (*models.SessionInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedCreateConflicts > 0 {
		f.forcedCreateConflicts--
		return nil, &pgconn.PgError{Code: "23505", ConstraintName: "sessions_coach_date_idx"}
	}
	for _, session := range f.sessions {
		if session.CoachID == input.CoachID && session.Date.Equal(dateOf(input.Date)) {
			return nil, &pgconn.PgError{Code: "23505", ConstraintName: "sessions_coach_date_idx"}
		}
	}
	f.nextSessionID++
	session := &models.SessionInstance{
		ID:               f.nextSessionID,
		CoachID:          input.CoachID,
		Date:             dateOf(input.Date),
		StartTime:        input.StartTime,
		EndTime:          input.EndTime,
		Timezone:         input.Timezone,
		Members:          append([]int64(nil), input.Members...),
		Status:           input.Status,
		MeetingLink:      input.MeetingLink,
		MeetingID:        input.MeetingID,
		FeeSnapshot:      input.FeeSnapshot,
		CurrencySnapshot: input.CurrencySnapshot,
	}
	f.sessions[session.ID] = session
	copied := *session
	return &copied, nil
}

func (f *fakeStore) FindByMemberFromDate(_ context.Context, clientID int64, fromDate time.Time) ([]models.SessionInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]models.SessionInstance, 0)
	for _, session := range f.sessions {
		if session.HasMember(clientID) && !session.Date.Before(dateOf(fromDate)) {
			matched = append(matched, *session)
		}
	}
	return matched, nil
}

func (f *fakeStore) RemoveMember(_ context.Context, sessionID, clientID int64) (*models.SessionInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	members := make([]int64, 0, len(session.Members))
	for _, id := range session.Members {
		if id != clientID {
			members = append(members, id)
		}
	}
	session.Members = members
	copied := *session
	return &copied, nil
}

func (f *fakeStore) Delete(_ context.Context, sessionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeStore) ListUnfinishedThrough(_ context.Context, throughDate time.Time) ([]models.SessionInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]models.SessionInstance, 0)
	for _, session := range f.sessions {
		if session.Date.After(dateOf(throughDate)) {
			continue
		}
		if session.Status == models.SessionStatusScheduled || session.Status == models.SessionStatusOngoing {
			matched = append(matched, *session)
		}
	}
	return matched, nil
}

func (f *fakeStore) UpdateStatusIfCurrent(_ context.Context, sessionID int64, currentStatus, nextStatus models.SessionStatus) (*models.SessionInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok || session.Status != currentStatus {
		return nil, pgx.ErrNoRows
	}
	session.Status = nextStatus
	copied := *session
	return &copied, nil
}

// countingMeetingProvider issues deterministic links and records how many
// meetings were requested.
type countingMeetingProvider struct {
	mu     sync.Mutex
	issued int
}

func (p *countingMeetingProvider) IssueMeeting(_ context.Context, coachID int64, date time.Time) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued++
	meetingID := fmt.Sprintf("meet-%d-%s-%d", coachID, date.Format("20060102"), p.issued)
	return "https://meet.test/" + meetingID, meetingID, nil
}
