package executor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// maxResponseBody caps how much of a response body is read for assertions.
const maxResponseBody = 10 << 20

// APIClient executes apiRequest steps.
type APIClient struct {
	client *http.Client
}

// NewAPIClient returns a client with the given per-request timeout. A zero
// timeout means no limit.
func NewAPIClient(timeout time.Duration) *APIClient {
	return &APIClient{client: &http.Client{Timeout: timeout}}
}

// Do issues the request relative to baseURL and checks the expected status
// and body substring.
func (c *APIClient) Do(ctx context.Context, baseURL string, s domain.APIRequestStep) error {
	target, err := resolveURL(baseURL, s.URL)
	if err != nil {
		return err
	}
	method := strings.ToUpper(s.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if s.Body != "" {
		body = strings.NewReader(s.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, target, err)
	}
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response of %s %s: %w", method, target, err)
	}

	if s.ExpectedStatus != nil && resp.StatusCode != *s.ExpectedStatus {
		return fmt.Errorf("expected status %d but got %d", *s.ExpectedStatus, resp.StatusCode)
	}
	if s.ExpectedBodyContains != "" && !strings.Contains(string(data), s.ExpectedBodyContains) {
		return fmt.Errorf("expected response body to contain %q", s.ExpectedBodyContains)
	}
	return nil
}

// resolveURL resolves ref against base. Absolute refs are returned as is.
func resolveURL(base, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", ref, err)
	}
	if r.IsAbs() {
		return ref, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid baseURL %q: %w", base, err)
	}
	return b.ResolveReference(r).String(), nil
}
