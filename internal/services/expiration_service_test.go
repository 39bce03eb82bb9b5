package services

import (
	"context"
	"testing"
	"time"

	"github.com/shubham30034/coachingAppBackend/internal/models"
	"go.uber.org/zap"
)

var (
	expiryNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	yesterday = time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	tomorrow  = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
)

func newTestExpirer(store *fakeStore) *ExpirationService {
	return NewExpirationService(store, store, zap.NewNop())
}

func TestReconcileExpirationsDeactivatesDueSubscriptions(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store, 1, 42, 7, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), yesterday)
	// Still running, must stay active.
	seedSubscription(store, 2, 35, 7, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))

	service := newTestExpirer(store)
	summary, err := service.ReconcileExpirations(context.Background(), expiryNow, models.ExpirationReasonAutomatic)
	if err != nil {
		t.Fatalf("ReconcileExpirations: %v", err)
	}
	if summary.SubscriptionsExpired != 1 {
		t.Fatalf("expected 1 subscription expired, got %d", summary.SubscriptionsExpired)
	}

	expired := store.subscriptionByID(1)
	if expired.Active {
		t.Fatal("expected subscription 1 deactivated")
	}
	if expired.ExpiredAt == nil || !expired.ExpiredAt.Equal(expiryNow) {
		t.Fatalf("expected expired_at %v, got %v", expiryNow, expired.ExpiredAt)
	}
	if expired.ExpirationReason == nil || *expired.ExpirationReason != models.ExpirationReasonAutomatic {
		t.Fatalf("expected automatic_expiration reason, got %v", expired.ExpirationReason)
	}
	if !store.subscriptionByID(2).Active {
		t.Fatal("expected subscription 2 to stay active")
	}

	// A second sweep with no state change must write nothing.
	again, err := service.ReconcileExpirations(context.Background(), expiryNow, models.ExpirationReasonAutomatic)
	if err != nil {
		t.Fatalf("second ReconcileExpirations: %v", err)
	}
	if again.SubscriptionsExpired != 0 || again.MembersRemoved != 0 || again.SessionsDeleted != 0 {
		t.Fatalf("expected idempotent second run, got %+v", again)
	}
}

func TestReconcileExpirationsRemovesLapsedMemberFromUpcomingSession(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store, 1, 42, 7, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), yesterday)
	seedSubscription(store, 2, 35, 7, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	store.addSession(models.SessionInstance{
		ID: 1, CoachID: 7, Date: tomorrow, StartTime: "09:00", EndTime: "10:00",
		Timezone: "UTC", Members: []int64{35, 42}, Status: models.SessionStatusScheduled,
	})

	summary, err := newTestExpirer(store).ReconcileExpirations(context.Background(), expiryNow, models.ExpirationReasonSubscriptionExpired)
	if err != nil {
		t.Fatalf("ReconcileExpirations: %v", err)
	}
	if summary.MembersRemoved != 1 || summary.SessionsDeleted != 0 {
		t.Fatalf("expected 1 member removed and no deletions, got %+v", summary)
	}

	session := store.sessionFor(7, tomorrow)
	if session == nil {
		t.Fatal("expected session to survive with remaining member")
	}
	if len(session.Members) != 1 || session.Members[0] != 35 {
		t.Fatalf("expected members [35], got %v", session.Members)
	}
}

func TestReconcileExpirationsDeletesSessionLeftEmpty(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store, 1, 42, 7, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), yesterday)
	store.addSession(models.SessionInstance{
		ID: 1, CoachID: 7, Date: tomorrow, StartTime: "09:00", EndTime: "10:00",
		Timezone: "UTC", Members: []int64{42}, Status: models.SessionStatusScheduled,
	})

	summary, err := newTestExpirer(store).ReconcileExpirations(context.Background(), expiryNow, models.ExpirationReasonSubscriptionExpired)
	if err != nil {
		t.Fatalf("ReconcileExpirations: %v", err)
	}
	if summary.MembersRemoved != 1 || summary.SessionsDeleted != 1 {
		t.Fatalf("expected sole member removed and session deleted, got %+v", summary)
	}
	if store.sessionCount() != 0 {
		t.Fatalf("expected no sessions left, got %d", store.sessionCount())
	}
}

func TestReconcileExpirationsLeavesPastSessionsAlone(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store, 1, 42, 7, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), yesterday)
	store.addSession(models.SessionInstance{
		ID: 1, CoachID: 7, Date: yesterday, StartTime: "09:00", EndTime: "10:00",
		Timezone: "UTC", Members: []int64{42}, Status: models.SessionStatusCompleted,
	})

	summary, err := newTestExpirer(store).ReconcileExpirations(context.Background(), expiryNow, models.ExpirationReasonSubscriptionExpired)
	if err != nil {
		t.Fatalf("ReconcileExpirations: %v", err)
	}
	if summary.MembersRemoved != 0 || summary.SessionsDeleted != 0 {
		t.Fatalf("expected historical session untouched, got %+v", summary)
	}

	session := store.sessionFor(7, yesterday)
	if session == nil || !session.HasMember(42) {
		t.Fatal("expected past session to keep its member")
	}
}

func TestReconcileExpirationsKeepsRenewedClients(t *testing.T) {
	store := newFakeStore()
	seedSubscription(store, 1, 42, 7, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), yesterday)
	// Renewal picked up where the old subscription left off.
	seedSubscription(store, 2, 42, 7, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	store.addSession(models.SessionInstance{
		ID: 1, CoachID: 7, Date: tomorrow, StartTime: "09:00", EndTime: "10:00",
		Timezone: "UTC", Members: []int64{42}, Status: models.SessionStatusScheduled,
	})

	summary, err := newTestExpirer(store).ReconcileExpirations(context.Background(), expiryNow, models.ExpirationReasonSubscriptionExpired)
	if err != nil {
		t.Fatalf("ReconcileExpirations: %v", err)
	}
	if summary.SubscriptionsExpired != 1 {
		t.Fatalf("expected old subscription expired, got %+v", summary)
	}
	if summary.MembersRemoved != 0 || summary.SessionsDeleted != 0 {
		t.Fatalf("expected renewed client kept, got %+v", summary)
	}

	session := store.sessionFor(7, tomorrow)
	if session == nil || !session.HasMember(42) {
		t.Fatal("expected renewed client to stay in the session")
	}
}

// A subscription deactivated by an earlier run whose member removal never
// happened (crash between the two steps) is picked up by the next sweep.
func TestReconcileExpirationsCleansUpStaleMembership(t *testing.T) {
	store := newFakeStore()
	expiredAt := time.Date(2025, 5, 31, 3, 0, 0, 0, time.UTC)
	reason := models.ExpirationReasonAutomatic
	store.addSubscription(models.Subscription{
		ID: 1, ClientID: 42, CoachID: 7, Active: false,
		StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), EndDate: yesterday,
		ExpiredAt: &expiredAt, ExpirationReason: &reason,
	})
	store.addSession(models.SessionInstance{
		ID: 1, CoachID: 7, Date: tomorrow, StartTime: "09:00", EndTime: "10:00",
		Timezone: "UTC", Members: []int64{42}, Status: models.SessionStatusScheduled,
	})

	summary, err := newTestExpirer(store).ReconcileExpirations(context.Background(), expiryNow, models.ExpirationReasonAutomatic)
	if err != nil {
		t.Fatalf("ReconcileExpirations: %v", err)
	}
	if summary.SubscriptionsExpired != 0 {
		t.Fatalf("expected no new expirations, got %d", summary.SubscriptionsExpired)
	}
	if summary.MembersRemoved != 1 || summary.SessionsDeleted != 1 {
		t.Fatalf("expected stale membership cleaned up, got %+v", summary)
	}
	if store.sessionCount() != 0 {
		t.Fatalf("expected orphaned session deleted, got %d", store.sessionCount())
	}
}
