package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/enums"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/model"
	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
	authsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/auth"
	interviewsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/interviews"
)

type ivStoreStub struct {
	record model.Interview
	onFind func()
}

func (s *ivStoreStub) Create(_ context.Context, iv model.Interview) (model.Interview, error) {
	return iv, nil
}

func (s *ivStoreStub) FindByRequestID(_ context.Context, _ int64, _ string) (model.Interview, error) {
	if s.onFind != nil {
		s.onFind()
	}
	return s.record, nil
}

func (s *ivStoreStub) ListByUser(context.Context, int64) ([]model.Interview, error) {
	return nil, nil
}

func (s *ivStoreStub) CountByUser(context.Context, int64) (int, error) { return 0, nil }

type ivProfilesStub struct{}

func (ivProfilesStub) GetByUserID(_ context.Context, userID int64) (pgrepo.ProfileRecord, error) {
	return pgrepo.ProfileRecord{UserID: userID, Email: "jane@example.com", TrialInterviewUsed: true}, nil
}

func (ivProfilesStub) MarkTrialUsed(context.Context, int64, time.Time) (bool, error) {
	return false, nil
}

func (ivProfilesStub) ReleaseTrial(context.Context, int64) error { return nil }

type ivStorageStub struct {
	puts int
}

func (s *ivStorageStub) EnsureBucket(context.Context) error { return nil }

func (s *ivStorageStub) PutDocument(_ context.Context, _ string, _ io.Reader, _ int64, _ string) error {
	s.puts++
	return nil
}

func (s *ivStorageStub) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "https://storage.example/cv?signed", nil
}

func (s *ivStorageStub) Delete(context.Context, string) error { return nil }

type ivProviderStub struct {
	calls int
}

func (p *ivProviderStub) CreateInterview(context.Context, interviewsvc.CreateRequest) (interviewsvc.CreateResponse, error) {
	p.calls++
	return interviewsvc.CreateResponse{RequestID: "req_1", Status: "creating"}, nil
}

func authedRequest(r *http.Request, requestID string) *http.Request {
	ctx := r.Context()
	if requestID != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("request_id", requestID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	ctx = authsvc.WithIdentity(ctx, authsvc.Identity{UserID: 1, SID: "sess", Role: "user"})
	return r.WithContext(ctx)
}

func TestSubmitOversizeFormReturnsFileTooLarge(t *testing.T) {
	storage := &ivStorageStub{}
	provider := &ivProviderStub{}
	svc := interviewsvc.NewService(interviewsvc.Dependencies{
		Store:    &ivStoreStub{},
		Profiles: ivProfilesStub{},
		Storage:  storage,
		Provider: provider,
	})
	h := NewInterviewHandler(svc, nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("job_title", "Backend Engineer"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	fw, err := mw.CreateFormFile("cv", "cv.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	payload := make([]byte, 3<<20)
	copy(payload, "%PDF-1.7\n")
	if _, err := fw.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/interviews", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	h.Submit(rec, authedRequest(req, ""))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status %d, want 413", rec.Code)
	}
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "FILE_TOO_LARGE" {
		t.Fatalf("code %q, want FILE_TOO_LARGE", resp.Code)
	}
	if storage.puts != 0 || provider.calls != 0 {
		t.Fatal("oversize form must touch neither storage nor the provider")
	}
}

type trackStoreStub struct {
	pending  []model.Interview
	notified int
}

func (s *trackStoreStub) ListUnfinished(context.Context, int) ([]model.Interview, error) {
	p := s.pending
	s.pending = nil
	return p, nil
}

func (s *trackStoreStub) UpdateStatus(context.Context, string, enums.InterviewStatus, string, string) error {
	return nil
}

func (s *trackStoreStub) MarkNotified(context.Context, string, time.Time) (bool, error) {
	s.notified++
	return s.notified == 1, nil
}

type statusQueueStub struct {
	responses []interviewsvc.StatusResponse
}

func (s *statusQueueStub) GetStatus(context.Context, string) (interviewsvc.StatusResponse, error) {
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

// A poll cycle that lands between the subscription and the snapshot read must
// still reach the stream, and a buffered duplicate of the snapshot must not.
func TestEventsCatchesTransitionDuringSnapshotRead(t *testing.T) {
	listed := model.Interview{UserID: 1, RequestID: "req_1", JobTitle: "Backend Engineer", Status: enums.InterviewStatusCreatedPending}
	track := &trackStoreStub{pending: []model.Interview{listed, listed}}
	client := &statusQueueStub{responses: []interviewsvc.StatusResponse{
		{RequestID: "req_1", Status: "analyzing-interview"},
		{RequestID: "req_1", Status: "completed", InterviewID: "iv_9"},
	}}
	tracker := interviewsvc.NewTracker(interviewsvc.TrackerDependencies{Store: track, Client: client})

	store := &ivStoreStub{record: model.Interview{UserID: 1, RequestID: "req_1", Status: enums.InterviewStatusAnalyzing}}
	// The poll fires while the handler reads its snapshot, after it has
	// subscribed. Both transitions land in the subscriber buffer.
	store.onFind = func() {
		if err := tracker.Poll(context.Background()); err != nil {
			t.Fatalf("poll: %v", err)
		}
	}
	svc := interviewsvc.NewService(interviewsvc.Dependencies{Store: store})
	h := NewInterviewHandler(svc, tracker, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/interviews/req_1/events", nil)
	rec := httptest.NewRecorder()

	h.Events(rec, authedRequest(req, "req_1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	body := rec.Body.String()
	if got := strings.Count(body, "event: status"); got != 2 {
		t.Fatalf("expected snapshot plus completion, got %d events:\n%s", got, body)
	}
	if !strings.Contains(body, `"completed":true`) {
		t.Fatalf("stream never completed:\n%s", body)
	}
	if !strings.Contains(body, "iv_9") {
		t.Fatalf("completion event lost:\n%s", body)
	}
}
