package expiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubSubs struct {
	userIDs []int64
	cutoff  time.Time
	err     error
}

func (s *stubSubs) ExpireActiveBefore(_ context.Context, cutoff time.Time) ([]int64, error) {
	s.cutoff = cutoff
	return s.userIDs, s.err
}

type stubProfiles struct {
	got []int64
}

func (s *stubProfiles) DowngradeExpired(_ context.Context, userIDs []int64) (int64, error) {
	s.got = userIDs
	return int64(len(userIDs)), nil
}

type stubServices struct {
	rows int64
}

func (s *stubServices) ExpireScheduledBefore(context.Context, time.Time) (int64, error) {
	return s.rows, nil
}

type stubPayments struct {
	cutoff time.Time
	rows   int64
}

func (s *stubPayments) ExpirePendingOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.rows, nil
}

func TestRunDowngradesOnlyExpiredUsers(t *testing.T) {
	subs := &stubSubs{userIDs: []int64{7, 11}}
	profiles := &stubProfiles{}
	job := New(subs, profiles, &stubServices{}, &stubPayments{}, time.Hour, zap.NewNop())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(profiles.got) != 2 || profiles.got[0] != 7 || profiles.got[1] != 11 {
		t.Fatalf("downgraded %v", profiles.got)
	}
}

func TestRunSkipsDowngradeWhenNothingExpired(t *testing.T) {
	profiles := &stubProfiles{got: nil}
	job := New(&stubSubs{}, profiles, &stubServices{}, &stubPayments{}, time.Hour, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if profiles.got != nil {
		t.Fatalf("unexpected downgrade call for %v", profiles.got)
	}
}

func TestRunPaymentBackstopCutoff(t *testing.T) {
	payments := &stubPayments{}
	job := New(&stubSubs{}, &stubProfiles{}, &stubServices{}, payments, 30*time.Minute, nil)
	fixed := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := fixed.Add(-30 * time.Minute)
	if !payments.cutoff.Equal(want) {
		t.Fatalf("cutoff %v, want %v", payments.cutoff, want)
	}
}

func TestRunStopsOnSubscriptionError(t *testing.T) {
	boom := errors.New("boom")
	payments := &stubPayments{}
	job := New(&stubSubs{err: boom}, &stubProfiles{}, &stubServices{}, payments, time.Hour, nil)

	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if !payments.cutoff.IsZero() {
		t.Fatal("payments sweep should not run after subscription failure")
	}
}
