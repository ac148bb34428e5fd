// Package eligibility provides a client for the third-party dental
// eligibility API. The network call is a black box to the verification
// core: only the raw response shape matters downstream.
package eligibility

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Source produces a raw eligibility payload for a member. Implemented by
// the HTTP client and by FileSource for offline imports.
type Source interface {
	Check(ctx context.Context, req CheckRequest) (map[string]any, error)
}

// CheckRequest identifies the member being verified.
type CheckRequest struct {
	MemberID    string `json:"memberId"`
	GroupNumber string `json:"groupNumber,omitempty"`
	Carrier     string `json:"carrier,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

// Option configures the eligibility client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second. Clearinghouses
// throttle aggressively and a 429 burns the whole batch.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an eligibility API client.
func NewClient(apiKey string, opts ...Option) Source {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.dentalxchange.example.com/v2",
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check runs one eligibility query and returns the raw payload without
// interpreting it. Transport, auth and malformed-JSON failures surface
// here; the normalizer downstream assumes a syntactically valid object.
func (c *httpClient) Check(ctx context.Context, req CheckRequest) (map[string]any, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "eligibility: rate limit wait")
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "eligibility: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/eligibility/check", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "eligibility: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "eligibility: request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, eris.Wrap(err, "eligibility: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("eligibility: status %d: %s", resp.StatusCode, truncate(string(data), 200)))
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "eligibility: decode response")
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
