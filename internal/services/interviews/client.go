package interviews

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/infra/httpclient"
)

var ErrProviderUnavailable = errors.New("interview provider unavailable")

// APIClient talks to the external AI-interview provider.
type APIClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewAPIClient(baseURL, apiKey string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpclient.New(timeout),
	}
}

type CreateRequest struct {
	CandidateName  string `json:"candidate_name"`
	CandidateEmail string `json:"candidate_email"`
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description"`
	CVURL          string `json:"cv_url"`
	Language       string `json:"language"`
}

type CreateResponse struct {
	RequestID   string `json:"request_id"`
	TaskID      string `json:"task_id"`
	CandidateID string `json:"candidate_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

type StatusResponse struct {
	RequestID   string `json:"request_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	InterviewID string `json:"interview_id"`
}

// CreateInterview registers the candidate with the provider and starts the
// asynchronous interview build.
func (c *APIClient) CreateInterview(ctx context.Context, in CreateRequest) (CreateResponse, error) {
	var out CreateResponse
	if err := c.post(ctx, "/interviews", in, &out); err != nil {
		return CreateResponse{}, err
	}
	if strings.TrimSpace(out.RequestID) == "" {
		return CreateResponse{}, fmt.Errorf("provider returned no request id")
	}
	return out, nil
}

// GetStatus fetches the provider's current view of one interview request.
func (c *APIClient) GetStatus(ctx context.Context, requestID string) (StatusResponse, error) {
	var out StatusResponse
	if err := c.get(ctx, "/interviews/"+escapeSegment(requestID)+"/status", &out); err != nil {
		return StatusResponse{}, err
	}
	return out, nil
}

func (c *APIClient) post(ctx context.Context, path string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *APIClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}
	return c.do(req, out)
}

func (c *APIClient) do(req *http.Request, out any) error {
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("provider rejected request: status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func escapeSegment(segment string) string {
	replacer := strings.NewReplacer("/", "%2F", "?", "%3F", "#", "%23", " ", "%20")
	return replacer.Replace(segment)
}
