package llm

import (
	"context"
	"net/http"
	"time"
)

// Provider is the interface for all LLM providers.
// Recognized options: "model" (string), "max_tokens" (int), "temperature" (float64).
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// Message is one chat turn.
type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

const defaultTimeout = 60 * time.Second

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: defaultTimeout}
}

func stringOption(options map[string]interface{}, key, fallback string) string {
	if val, ok := options[key].(string); ok && val != "" {
		return val
	}
	return fallback
}

func intOption(options map[string]interface{}, key string, fallback int) int {
	switch val := options[key].(type) {
	case int:
		if val > 0 {
			return val
		}
	case float64:
		if val > 0 {
			return int(val)
		}
	}
	return fallback
}

func floatOption(options map[string]interface{}, key string, fallback float64) float64 {
	switch val := options[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return fallback
}
