package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// AnthropicProvider calls the Messages API directly.
type AnthropicProvider struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	HTTPClient   *http.Client
}

var _ Provider = (*AnthropicProvider)(nil)

// AnthropicRequest is the Messages API request body.
type AnthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// AnthropicResponse is the subset of the response we read.
type AnthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *AnthropicProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY_MISSING")
	}
	model := stringOption(options, "model", p.DefaultModel)
	if model == "" {
		return "", fmt.Errorf("ANTHROPIC_MODEL_MISSING")
	}
	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}

	reqBody := AnthropicRequest{
		Model:       model,
		MaxTokens:   intOption(options, "max_tokens", 1024),
		System:      systemPrompt,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: floatOption(options, "temperature", 0),
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := httpClientOrDefault(p.HTTPClient).Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic request failed with status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	var parsed AnthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("anthropic error: %s", parsed.Error.Message)
	}

	var chunks []string
	for _, c := range parsed.Content {
		if c.Type == "text" && c.Text != "" {
			chunks = append(chunks, c.Text)
		}
	}
	return strings.Join(chunks, "\n"), nil
}
