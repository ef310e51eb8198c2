package seeding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/trendetl/internal/domain/model"
)

// HTTPClient wraps http.Client for the engine's control API.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends a request and decodes a JSON body into out when the status is
// wantStatus.
func (c *HTTPClient) do(ctx context.Context, method, path string, wantStatus int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

func (c *HTTPClient) health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", http.StatusOK, nil)
}

// fullPass runs a full pass and waits for its sealed job.
func (c *HTTPClient) fullPass(ctx context.Context) (*model.Job, error) {
	var j model.Job
	if err := c.do(ctx, http.MethodPost, "/jobs/full_pass?wait=true", http.StatusOK, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (c *HTTPClient) latestReport(ctx context.Context) (*model.TrendReport, error) {
	var r model.TrendReport
	if err := c.do(ctx, http.MethodGet, "/reports/latest", http.StatusOK, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *HTTPClient) sound(ctx context.Context, id string) (*model.Sound, error) {
	var s model.Sound
	if err := c.do(ctx, http.MethodGet, "/sounds/"+id, http.StatusOK, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
