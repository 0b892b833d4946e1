package interviews

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/model"
	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
)

type fakeStore struct {
	interviews []model.Interview
	nextID     int64
}

func (f *fakeStore) Create(_ context.Context, iv model.Interview) (model.Interview, error) {
	f.nextID++
	iv.ID = f.nextID
	f.interviews = append(f.interviews, iv)
	return iv, nil
}

func (f *fakeStore) FindByRequestID(_ context.Context, userID int64, requestID string) (model.Interview, error) {
	for _, iv := range f.interviews {
		if iv.RequestID == requestID && iv.UserID == userID {
			return iv, nil
		}
	}
	return model.Interview{}, pgrepo.ErrInterviewNotFound
}

func (f *fakeStore) ListByUser(_ context.Context, userID int64) ([]model.Interview, error) {
	var out []model.Interview
	for _, iv := range f.interviews {
		if iv.UserID == userID {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (f *fakeStore) CountByUser(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, iv := range f.interviews {
		if iv.UserID == userID {
			count++
		}
	}
	return count, nil
}

type fakeProfiles struct {
	profile  pgrepo.ProfileRecord
	claims   int
	releases int
}

func (f *fakeProfiles) GetByUserID(_ context.Context, _ int64) (pgrepo.ProfileRecord, error) {
	return f.profile, nil
}

func (f *fakeProfiles) MarkTrialUsed(_ context.Context, _ int64, _ time.Time) (bool, error) {
	if f.profile.TrialInterviewUsed {
		return false, nil
	}
	f.profile.TrialInterviewUsed = true
	f.claims++
	return true, nil
}

func (f *fakeProfiles) ReleaseTrial(_ context.Context, _ int64) error {
	if f.profile.TrialInterviewUsed {
		f.profile.TrialInterviewUsed = false
		f.releases++
	}
	return nil
}

type fakeStorage struct {
	objects map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) EnsureBucket(_ context.Context) error { return nil }

func (f *fakeStorage) PutDocument(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.example/" + key + "?signed", nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeProvider struct {
	calls   int
	failErr error
	status  string
}

func (f *fakeProvider) CreateInterview(_ context.Context, in CreateRequest) (CreateResponse, error) {
	f.calls++
	if f.failErr != nil {
		return CreateResponse{}, f.failErr
	}
	status := f.status
	if status == "" {
		status = "creating"
	}
	return CreateResponse{
		RequestID:   "req_1",
		TaskID:      "task_1",
		CandidateID: "cand_1",
		Status:      status,
	}, nil
}

func pdfBody(size int64) []byte {
	body := make([]byte, int(size))
	copy(body, "%PDF-1.7\n")
	return body
}

func pdfInput(userID int64, size int64) SubmitInput {
	return SubmitInput{
		UserID:      userID,
		JobTitle:    "Backend Engineer",
		Language:    "en",
		FileName:    "cv.pdf",
		ContentType: "application/pdf",
		Body:        bytes.NewReader(pdfBody(size)),
		Size:        size,
	}
}

func newSubmitService(store *fakeStore, profiles *fakeProfiles, storage *fakeStorage, provider *fakeProvider) *Service {
	return NewService(Dependencies{
		Store:    store,
		Profiles: profiles,
		Storage:  storage,
		Provider: provider,
	})
}

func usedProfile(userID int64) pgrepo.ProfileRecord {
	return pgrepo.ProfileRecord{UserID: userID, Email: "jane@example.com", TrialInterviewUsed: true}
}

func TestSubmitHappyPath(t *testing.T) {
	store := &fakeStore{}
	storage := newFakeStorage()
	provider := &fakeProvider{}
	svc := newSubmitService(store, &fakeProfiles{profile: usedProfile(1)}, storage, provider)

	interview, err := svc.Submit(context.Background(), pdfInput(1, 1024))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if interview.RequestID != "req_1" {
		t.Fatalf("request id %q", interview.RequestID)
	}
	if interview.Status != "creating" {
		t.Fatalf("status %q, want creating", interview.Status)
	}
	if len(storage.objects) != 1 {
		t.Fatalf("expected one stored object, got %d", len(storage.objects))
	}
	if !strings.HasPrefix(interview.CVObjectKey, "cv/1/") || !strings.HasSuffix(interview.CVObjectKey, ".pdf") {
		t.Fatalf("object key %q", interview.CVObjectKey)
	}
}

func TestSubmitOversizePDFNeverUploads(t *testing.T) {
	storage := newFakeStorage()
	provider := &fakeProvider{}
	svc := newSubmitService(&fakeStore{}, &fakeProfiles{profile: usedProfile(1)}, storage, provider)

	_, err := svc.Submit(context.Background(), pdfInput(1, 3<<20))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if len(storage.objects) != 0 || provider.calls != 0 {
		t.Fatal("oversize submission must touch neither storage nor the provider")
	}
}

func TestSubmitRejectsNonPDF(t *testing.T) {
	svc := newSubmitService(&fakeStore{}, &fakeProfiles{profile: usedProfile(1)}, newFakeStorage(), &fakeProvider{})

	in := pdfInput(1, 1024)
	in.FileName = "cv.docx"
	in.ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	if _, err := svc.Submit(context.Background(), in); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF, got %v", err)
	}
}

func TestSubmitRejectsForgedPDFExtension(t *testing.T) {
	storage := newFakeStorage()
	svc := newSubmitService(&fakeStore{}, &fakeProfiles{profile: usedProfile(1)}, storage, &fakeProvider{})

	// Right extension and header, wrong magic bytes.
	in := pdfInput(1, 1024)
	in.Body = bytes.NewReader(make([]byte, 1024))

	if _, err := svc.Submit(context.Background(), in); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF for forged content, got %v", err)
	}
	if len(storage.objects) != 0 {
		t.Fatal("forged file must never reach storage")
	}
}

func TestSubmitQuotaBlocksSixthInterview(t *testing.T) {
	store := &fakeStore{}
	provider := &fakeProvider{}
	svc := newSubmitService(store, &fakeProfiles{profile: usedProfile(1)}, newFakeStorage(), provider)

	for i := 0; i < 5; i++ {
		if _, err := svc.Submit(context.Background(), pdfInput(1, 1024)); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}

	providerCalls := provider.calls
	_, err := svc.Submit(context.Background(), pdfInput(1, 1024))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if provider.calls != providerCalls {
		t.Fatal("blocked submission must not reach the provider")
	}
}

func TestSubmitCreditsRaiseAllowance(t *testing.T) {
	store := &fakeStore{}
	profiles := &fakeProfiles{profile: usedProfile(1)}
	profiles.profile.InterviewCredits = 10
	svc := newSubmitService(store, profiles, newFakeStorage(), &fakeProvider{})

	for i := 0; i < 10; i++ {
		if _, err := svc.Submit(context.Background(), pdfInput(1, 1024)); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}
	if _, err := svc.Submit(context.Background(), pdfInput(1, 1024)); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded after credits, got %v", err)
	}
}

func TestSubmitTrialBypassesAllowanceOnce(t *testing.T) {
	store := &fakeStore{}
	profiles := &fakeProfiles{profile: pgrepo.ProfileRecord{UserID: 1, Email: "jane@example.com"}}
	svc := newSubmitService(store, profiles, newFakeStorage(), &fakeProvider{})

	// Trial slot plus the regular allowance of five.
	for i := 0; i < 6; i++ {
		if _, err := svc.Submit(context.Background(), pdfInput(1, 1024)); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}
	if profiles.claims != 1 {
		t.Fatalf("trial claimed %d times, want 1", profiles.claims)
	}
	if _, err := svc.Submit(context.Background(), pdfInput(1, 1024)); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestSubmitProviderFailureCleansUpObject(t *testing.T) {
	storage := newFakeStorage()
	provider := &fakeProvider{failErr: ErrProviderUnavailable}
	store := &fakeStore{}
	svc := newSubmitService(store, &fakeProfiles{profile: usedProfile(1)}, storage, provider)

	_, err := svc.Submit(context.Background(), pdfInput(1, 1024))
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if len(storage.objects) != 0 {
		t.Fatal("orphaned CV object left in storage")
	}
	if len(store.interviews) != 0 {
		t.Fatal("no interview row may exist for a failed provider call")
	}
}

func TestSubmitProviderFailureRefundsTrial(t *testing.T) {
	profiles := &fakeProfiles{profile: pgrepo.ProfileRecord{UserID: 1, Email: "jane@example.com"}}
	provider := &fakeProvider{failErr: ErrProviderUnavailable}
	svc := newSubmitService(&fakeStore{}, profiles, newFakeStorage(), provider)

	if _, err := svc.Submit(context.Background(), pdfInput(1, 1024)); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if profiles.releases != 1 {
		t.Fatalf("trial released %d times, want 1", profiles.releases)
	}
	if profiles.profile.TrialInterviewUsed {
		t.Fatal("failed submission must not burn the free slot")
	}

	// The slot survives for the next attempt.
	provider.failErr = nil
	if _, err := svc.Submit(context.Background(), pdfInput(1, 1024)); err != nil {
		t.Fatalf("retry after refund: %v", err)
	}
	if profiles.claims != 2 {
		t.Fatalf("trial claimed %d times across both attempts, want 2", profiles.claims)
	}
}

func TestGetScopesToOwner(t *testing.T) {
	store := &fakeStore{}
	svc := newSubmitService(store, &fakeProfiles{profile: usedProfile(1)}, newFakeStorage(), &fakeProvider{})

	interview, err := svc.Submit(context.Background(), pdfInput(1, 1024))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.Get(context.Background(), 2, interview.RequestID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
	if _, err := svc.Get(context.Background(), 1, interview.RequestID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
}
