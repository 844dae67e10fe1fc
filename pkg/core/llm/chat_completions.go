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

// ChatCompletionsProvider talks to any OpenAI-compatible /chat/completions
// endpoint: OpenAI, Azure OpenAI (v1 surface) and DeepSeek.
type ChatCompletionsProvider struct {
	Name         string
	BaseURL      string
	APIKey       string
	DefaultModel string
	// AzureAuth sends the key in the api-key header as well.
	AzureAuth  bool
	HTTPClient *http.Client
}

var _ Provider = (*ChatCompletionsProvider)(nil)

// ChatRequest is the request body.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// ChatResponse is the subset of the response we read.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *ChatCompletionsProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	tag := strings.ToUpper(p.Name)
	if p.APIKey == "" {
		return "", fmt.Errorf("%s_API_KEY_MISSING", tag)
	}
	model := stringOption(options, "model", p.DefaultModel)
	if model == "" {
		return "", fmt.Errorf("%s_MODEL_MISSING", tag)
	}

	var messages []Message
	if systemPrompt != "" {
		messages = append(messages, Message{Content: systemPrompt, Role: "system"})
	}
	messages = append(messages, Message{Content: prompt, Role: "user"})

	reqBody := ChatRequest{
		Messages:    messages,
		Model:       model,
		MaxTokens:   intOption(options, "max_tokens", 0),
		Temperature: floatOption(options, "temperature", 0),
	}
	jsonBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%s_MARSHAL_ERROR: %v", tag, err)
	}

	url := strings.TrimRight(p.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("%s_REQ_CREATE_ERROR: %v", tag, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if p.AzureAuth {
		req.Header.Set("api-key", p.APIKey)
	}

	res, err := httpClientOrDefault(p.HTTPClient).Do(req)
	if err != nil {
		return "", fmt.Errorf("%s_API_CALL_ERROR: %w", tag, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%s_READ_BODY_ERROR: %v", tag, err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s_API_ERROR: status=%d body=%s", tag, res.StatusCode, truncate(string(body), 300))
	}

	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%s_UNMARSHAL_ERROR: %v", tag, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%s_NO_CHOICES", tag)
	}
	return response.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
