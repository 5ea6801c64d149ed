package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const analysisInstruction = `Classify the news article below. Answer with one JSON object and nothing else:
{"category": "<one of: %s>", "sentiment": "positive|negative|neutral", "keywords": ["..."], "summary": "<two or three sentences>", "importance": <0-10>}`

// ChatGPTClient implements ports.TextAnalyzer backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	categories   []string
	httpClient   *http.Client
}

var _ ports.TextAnalyzer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig, categories []string) *ChatGPTClient {
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		categories:   categories,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type analysisPayload struct {
	Category   string   `json:"category"`
	Sentiment  string   `json:"sentiment"`
	Keywords   []string `json:"keywords"`
	Summary    string   `json:"summary"`
	Importance float64  `json:"importance"`
}

// Analyze asks the model for a JSON analysis of the article.
func (c *ChatGPTClient) Analyze(ctx context.Context, headline, body string) (domain.Analysis, error) {
	if c == nil {
		return domain.Analysis{}, fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.Analysis{}, fmt.Errorf("chatgpt client misconfigured")
	}

	categories := strings.Join(c.categories, ", ")
	if categories == "" {
		categories = "general"
	}
	reqBody, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": fmt.Sprintf(analysisInstruction, categories) + "\n\nHeadline: " + headline + "\n\n" + truncate(body, 6000)},
		},
		"temperature":     0.3,
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("chatgpt analyze: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Analysis{}, fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return domain.Analysis{}, fmt.Errorf("chatgpt response has no choices")
	}

	var out analysisPayload
	content := stripFence(decoded.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode chatgpt analysis: %w", err)
	}
	return domain.Analysis{
		Category:   strings.ToLower(strings.TrimSpace(out.Category)),
		Sentiment:  strings.ToLower(strings.TrimSpace(out.Sentiment)),
		Keywords:   out.Keywords,
		Summary:    strings.TrimSpace(out.Summary),
		Importance: out.Importance,
	}, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You analyse news articles and answer with strict JSON."
	}
	return prompt
}

// stripFence removes a ```json fence some models wrap around their answer.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
