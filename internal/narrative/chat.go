package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pcos-screening-server/internal/domain"
)

const systemPrompt = "You explain PCOS pre-screening results to app users in plain, supportive language. " +
	"Use only the phenotype, confidence and reasons given. Never state or imply a diagnosis, " +
	"never suggest medication, and keep the answer under 150 words."

// ChatConfig represents configuration for an OpenAI-compatible chat completions API
type ChatConfig struct {
	BaseURL   string        `json:"base_url"`
	APIKey    string        `json:"api_key"`
	Model     string        `json:"model"`
	Timeout   time.Duration `json:"timeout"`
	RateLimit float64       `json:"rate_limit"` // requests per second
	MaxTokens int           `json:"max_tokens"`
}

// ChatGenerator asks a hosted language model for the explanation.
type ChatGenerator struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewChatGenerator creates a chat completions client
func NewChatGenerator(config ChatConfig) *ChatGenerator {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.Model == "" {
		config.Model = "llama-3.1-8b-instant"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 300
	}

	return &ChatGenerator{
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		apiKey:    config.APIKey,
		model:     config.Model,
		maxTokens: config.MaxTokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Explain implements domain.NarrativeGenerator.
func (g *ChatGenerator) Explain(ctx context.Context, input domain.NarrativeInput) (string, error) {
	if err := g.rateLimit.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait failed: %w", err)
	}

	prompt, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to encode narrative input: %w", err)
	}
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Screening result:\n" + string(prompt)},
		},
		MaxTokens:   g.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("chat API error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("chat API returned no content: %w", domain.ErrNarrativeUnavailable)
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}
