package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/domain/model"
	authsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/auth"
	interviewsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/interviews"
	ratesvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/rate"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/transport/http/dto"
	httperrors "github.com/pmorral/lapieza-career-navigator-sub000/internal/transport/http/errors"
)

// Headroom above the CV limit for the multipart framing and the text fields.
const maxSubmitFormSize = interviewsvc.MaxCVSize + (256 << 10)

type InterviewHandler struct {
	service *interviewsvc.Service
	tracker *interviewsvc.Tracker
	limiter *ratesvc.Limiter
}

func NewInterviewHandler(service *interviewsvc.Service, tracker *interviewsvc.Tracker, limiter *ratesvc.Limiter) *InterviewHandler {
	return &InterviewHandler{
		service: service,
		tracker: tracker,
		limiter: limiter,
	}
}

func (h *InterviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "INTERVIEW_SERVICE_UNAVAILABLE", "interview service is unavailable")
		return
	}

	if h.limiter != nil {
		retryAfter, allowed, err := h.limiter.AllowSubmit(r.Context(), identity.UserID)
		if err != nil {
			writeInternal(w, "INTERNAL_ERROR", "failed to check submission rate")
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "RATE_LIMITED",
				Message:       "too many interview submissions",
				RetryAfterSec: retryAfter,
			})
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitFormSize)
	if err := r.ParseMultipartForm(maxSubmitFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handleInterviewError(w, interviewsvc.ErrFileTooLarge)
			return
		}
		writeBadRequest(w, "VALIDATION_ERROR", "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("cv")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "cv file is required")
		return
	}
	defer file.Close()

	if header == nil || header.Size <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "cv file is empty")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	interview, err := h.service.Submit(r.Context(), interviewsvc.SubmitInput{
		UserID:         identity.UserID,
		JobTitle:       r.FormValue("job_title"),
		JobDescription: r.FormValue("job_description"),
		Language:       r.FormValue("language"),
		FileName:       header.Filename,
		ContentType:    contentType,
		Body:           file,
		Size:           header.Size,
	})
	if err != nil {
		handleInterviewError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, interviewResponse(interview))
}

func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "INTERVIEW_SERVICE_UNAVAILABLE", "interview service is unavailable")
		return
	}

	interview, err := h.service.Get(r.Context(), identity.UserID, chi.URLParam(r, "request_id"))
	if err != nil {
		handleInterviewError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, interviewResponse(interview))
}

func (h *InterviewHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "INTERVIEW_SERVICE_UNAVAILABLE", "interview service is unavailable")
		return
	}

	interviews, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		handleInterviewError(w, err)
		return
	}

	resp := dto.InterviewListResponse{
		Interviews: make([]dto.InterviewResponse, 0, len(interviews)),
		Total:      len(interviews),
	}
	for _, interview := range interviews {
		resp.Interviews = append(resp.Interviews, interviewResponse(interview))
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *InterviewHandler) CVLink(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "INTERVIEW_SERVICE_UNAVAILABLE", "interview service is unavailable")
		return
	}

	link, err := h.service.CVLink(r.Context(), identity.UserID, chi.URLParam(r, "request_id"))
	if err != nil {
		handleInterviewError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CVLinkResponse{URL: link})
}

// Events streams status changes for one interview over SSE until the client
// disconnects or the interview completes.
func (h *InterviewHandler) Events(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil || h.tracker == nil {
		writeInternal(w, "INTERVIEW_SERVICE_UNAVAILABLE", "interview service is unavailable")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternal(w, "STREAMING_UNSUPPORTED", "response writer does not support streaming")
		return
	}

	requestID := chi.URLParam(r, "request_id")

	// Subscribe before the ownership read so a transition landing between
	// the two is buffered in the channel instead of lost. A buffered update
	// may then duplicate the snapshot; the loop drops those.
	updates, cancel := h.tracker.Subscribe(requestID)
	defer cancel()

	interview, err := h.service.Get(r.Context(), identity.UserID, requestID)
	if err != nil {
		handleInterviewError(w, err)
		return
	}

	// Lift the server write deadline, the stream outlives it.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	last := interviewsvc.StatusUpdate{
		RequestID:   interview.RequestID,
		Status:      interview.Status,
		Message:     interview.APIMessage,
		InterviewID: interview.InterviewID,
		Completed:   interview.Status.Terminal(),
	}
	if !writeSSE(w, flusher, last) || last.Completed {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case update, open := <-updates:
			if !open {
				return
			}
			if update.Status == last.Status && update.InterviewID == last.InterviewID {
				continue
			}
			last = update
			if !writeSSE(w, flusher, update) || update.Completed {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, update interviewsvc.StatusUpdate) bool {
	data, err := json.Marshal(update)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
		return false
	}
	flusher.Flush()
	return true
}

func interviewResponse(interview model.Interview) dto.InterviewResponse {
	return dto.InterviewResponse{
		RequestID:      interview.RequestID,
		InterviewID:    interview.InterviewID,
		JobTitle:       interview.JobTitle,
		JobDescription: interview.JobDescription,
		Language:       interview.Language,
		Status:         string(interview.Status),
		Message:        interview.APIMessage,
		CreatedAt:      interview.CreatedAt,
		UpdatedAt:      interview.UpdatedAt,
		NotifiedAt:     interview.NotifiedAt,
	}
}

func handleInterviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interviewsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid interview payload")
	case errors.Is(err, interviewsvc.ErrNotPDF):
		writeBadRequest(w, "NOT_PDF", "cv must be a PDF document")
	case errors.Is(err, interviewsvc.ErrFileTooLarge):
		httperrors.Write(w, http.StatusRequestEntityTooLarge, httperrors.APIError{
			Code:    "FILE_TOO_LARGE",
			Message: "cv exceeds the 2 MiB limit",
		})
	case errors.Is(err, interviewsvc.ErrQuotaExceeded):
		httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
			Code:    "QUOTA_EXCEEDED",
			Message: "interview allowance exhausted",
		})
	case errors.Is(err, interviewsvc.ErrNotFound):
		writeNotFound(w, "INTERVIEW_NOT_FOUND", "interview not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process interview request")
	}
}
