package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
	redrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/redis"
)

type fakeQueue struct {
	jobs []redrepo.EmailJob
}

func (f *fakeQueue) Enqueue(_ context.Context, job redrepo.EmailJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeQueue) Dequeue(_ context.Context, _ time.Duration) (redrepo.EmailJob, bool, error) {
	if len(f.jobs) == 0 {
		return redrepo.EmailJob{}, false, nil
	}
	job := f.jobs[0]
	f.jobs = f.jobs[1:]
	return job, true, nil
}

type fakeProfiles struct {
	profile pgrepo.ProfileRecord
}

func (f *fakeProfiles) GetByUserID(_ context.Context, _ int64) (pgrepo.ProfileRecord, error) {
	return f.profile, nil
}

func buyerProfile() pgrepo.ProfileRecord {
	return pgrepo.ProfileRecord{UserID: 7, Email: "jane@example.com", FullName: "Jane Doe"}
}

func TestMembershipActivatedMailsBuyerAndOps(t *testing.T) {
	queue := &fakeQueue{}
	svc := NewService(queue, &fakeProfiles{profile: buyerProfile()}, "ops@lapieza.io", nil)

	if err := svc.MembershipActivated(context.Background(), 7, "Premium 12 months"); err != nil {
		t.Fatalf("membership activated: %v", err)
	}

	if len(queue.jobs) != 2 {
		t.Fatalf("expected buyer plus ops mail, got %d jobs", len(queue.jobs))
	}
	if queue.jobs[0].To != "jane@example.com" {
		t.Fatalf("first mail to %q, want the buyer", queue.jobs[0].To)
	}
	if queue.jobs[1].To != "ops@lapieza.io" {
		t.Fatalf("second mail to %q, want the ops inbox", queue.jobs[1].To)
	}
	if !strings.Contains(queue.jobs[1].Body, "jane@example.com") {
		t.Fatal("ops alert must name the buyer")
	}
	if !strings.Contains(queue.jobs[1].Subject, "Premium 12 months") {
		t.Fatalf("ops subject %q must name the product", queue.jobs[1].Subject)
	}
}

func TestServicePurchasedMailsBuyerAndOps(t *testing.T) {
	queue := &fakeQueue{}
	svc := NewService(queue, &fakeProfiles{profile: buyerProfile()}, "ops@lapieza.io", nil)

	expires := time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC)
	if err := svc.ServicePurchased(context.Background(), 7, "CV Rewrite", expires); err != nil {
		t.Fatalf("service purchased: %v", err)
	}

	if len(queue.jobs) != 2 {
		t.Fatalf("expected buyer plus ops mail, got %d jobs", len(queue.jobs))
	}
	if queue.jobs[1].To != "ops@lapieza.io" {
		t.Fatalf("second mail to %q, want the ops inbox", queue.jobs[1].To)
	}
}

func TestNoOpsInboxConfigured(t *testing.T) {
	queue := &fakeQueue{}
	svc := NewService(queue, &fakeProfiles{profile: buyerProfile()}, "", nil)

	if err := svc.MembershipActivated(context.Background(), 7, "Premium 6 months"); err != nil {
		t.Fatalf("membership activated: %v", err)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("expected only the buyer mail, got %d jobs", len(queue.jobs))
	}
}

func TestInterviewReadySkipsOps(t *testing.T) {
	queue := &fakeQueue{}
	svc := NewService(queue, &fakeProfiles{profile: buyerProfile()}, "ops@lapieza.io", nil)

	if err := svc.InterviewReady(context.Background(), 7, "Backend Engineer"); err != nil {
		t.Fatalf("interview ready: %v", err)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("completion mail is not a purchase, got %d jobs", len(queue.jobs))
	}
}
