package optimizer

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

var ErrAIUnavailable = errors.New("ai service unavailable")

// AIClient calls the chat endpoint of the AI service. One client per API
// key, so the CV and LinkedIn products can bill separately.
type AIClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewAIClient(baseURL, apiKey string, timeout time.Duration) *AIClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &AIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpclient.New(timeout),
	}
}

type chatRequest struct {
	Input string `json:"input"`
}

type chatResponse struct {
	Output string `json:"output"`
}

// Chat sends one prompt and returns the raw model output. Transport errors
// are retried with backoff; a non-200 answer is not.
func (c *AIClient) Chat(ctx context.Context, prompt string) (string, error) {
	raw, err := json.Marshal(chatRequest{Input: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	resp, err := c.postWithRetry(ctx, "/v1/chat", raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrAIUnavailable, resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return out.Output, nil
}

func (c *AIClient) postWithRetry(ctx context.Context, path string, body []byte) (*http.Response, error) {
	const attempts = 3

	var lastErr error
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if i < attempts-1 {
			backoff := time.Duration(1<<i) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}
