package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// Client talks to an external inference service for article analysis.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.TextAnalyzer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type analyzeResponse struct {
	Category   string   `json:"category"`
	Sentiment  string   `json:"sentiment"`
	Keywords   []string `json:"keywords"`
	Summary    string   `json:"summary"`
	Importance float64  `json:"importance"`
}

// Analyze sends headline and body to /analyze.
func (c *Client) Analyze(ctx context.Context, headline, body string) (domain.Analysis, error) {
	if c.endpoint == "" {
		return domain.Analysis{}, fmt.Errorf("ml client: inference url is empty")
	}

	payload := map[string]any{
		"headline": headline,
		"content":  body,
	}

	var resp analyzeResponse
	if err := c.post(ctx, "/analyze", payload, &resp); err != nil {
		return domain.Analysis{}, err
	}

	return domain.Analysis{
		Category:   resp.Category,
		Sentiment:  resp.Sentiment,
		Keywords:   resp.Keywords,
		Summary:    resp.Summary,
		Importance: resp.Importance,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
