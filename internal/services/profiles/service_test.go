package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
)

type fakeStore struct {
	profiles map[int64]pgrepo.ProfileRecord
}

func (f *fakeStore) GetByUserID(_ context.Context, userID int64) (pgrepo.ProfileRecord, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return pgrepo.ProfileRecord{}, pgrepo.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeStore) UpdateCareerFields(_ context.Context, userID int64, headline, targetRole, language string) (pgrepo.ProfileRecord, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return pgrepo.ProfileRecord{}, pgrepo.ErrProfileNotFound
	}
	p.Headline = headline
	p.TargetRole = targetRole
	p.Language = language
	f.profiles[userID] = p
	return p, nil
}

type fakeServiceStore struct {
	services  map[int64][]pgrepo.ServiceRecord
	completed []int64
}

func (f *fakeServiceStore) ListByUser(_ context.Context, userID int64) ([]pgrepo.ServiceRecord, error) {
	return f.services[userID], nil
}

func (f *fakeServiceStore) MarkCompleted(_ context.Context, userID, serviceID int64, _ time.Time) error {
	for _, svc := range f.services[userID] {
		if svc.ID == serviceID && svc.Status == "scheduled" {
			f.completed = append(f.completed, serviceID)
			return nil
		}
	}
	return pgrepo.ErrServiceNotFound
}

type fakeSubStore struct {
	subs map[int64]pgrepo.SubscriptionRecord
}

func (f *fakeSubStore) FindActiveByUser(_ context.Context, userID int64) (pgrepo.SubscriptionRecord, error) {
	sub, ok := f.subs[userID]
	if !ok {
		return pgrepo.SubscriptionRecord{}, pgrepo.ErrSubscriptionNotFound
	}
	return sub, nil
}

func newTestService() (*Service, *fakeStore, *fakeServiceStore, *fakeSubStore) {
	store := &fakeStore{profiles: map[int64]pgrepo.ProfileRecord{
		1: {UserID: 1, Email: "jane@example.com", SubscriptionStatus: "active"},
	}}
	services := &fakeServiceStore{services: map[int64][]pgrepo.ServiceRecord{
		1: {{ID: 10, UserID: 1, ServiceName: "Professional CV Rewrite", Status: "scheduled"}},
	}}
	subs := &fakeSubStore{subs: map[int64]pgrepo.SubscriptionRecord{
		1: {ID: 5, UserID: 1, PlanType: "premium_12m", Status: "active"},
	}}
	return NewService(store, services, subs), store, services, subs
}

func TestSnapshot(t *testing.T) {
	svc, _, _, _ := newTestService()

	snapshot, err := svc.Snapshot(context.Background(), 1)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.Profile.Email != "jane@example.com" {
		t.Fatalf("profile %+v", snapshot.Profile)
	}
	if snapshot.Subscription == nil || snapshot.Subscription.PlanType != "premium_12m" {
		t.Fatalf("subscription %+v", snapshot.Subscription)
	}
	if len(snapshot.Services) != 1 {
		t.Fatalf("services %v", snapshot.Services)
	}
}

func TestSnapshotWithoutSubscription(t *testing.T) {
	svc, store, _, subs := newTestService()
	store.profiles[2] = pgrepo.ProfileRecord{UserID: 2, Email: "x@example.com"}
	delete(subs.subs, 2)

	snapshot, err := svc.Snapshot(context.Background(), 2)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.Subscription != nil {
		t.Fatal("expected nil subscription for free user")
	}
}

func TestSnapshotUnknownUser(t *testing.T) {
	svc, _, _, _ := newTestService()

	if _, err := svc.Snapshot(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateCareerFields(t *testing.T) {
	svc, _, _, _ := newTestService()

	updated, err := svc.Update(context.Background(), 1, UpdateInput{
		Headline:   "Backend engineer who ships",
		TargetRole: "Staff Engineer",
		Language:   "en",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TargetRole != "Staff Engineer" {
		t.Fatalf("target role %q", updated.TargetRole)
	}
}

func TestUpdateRejectsOversizedFields(t *testing.T) {
	svc, _, _, _ := newTestService()

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}

	if _, err := svc.Update(context.Background(), 1, UpdateInput{Headline: string(long)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCompleteService(t *testing.T) {
	svc, _, services, _ := newTestService()

	if err := svc.CompleteService(context.Background(), 1, 10); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(services.completed) != 1 || services.completed[0] != 10 {
		t.Fatalf("completed %v", services.completed)
	}

	// Wrong owner cannot touch the row.
	if err := svc.CompleteService(context.Background(), 2, 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
}
