package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google's Gemini models.
type GeminiProvider struct {
	APIKey       string
	DefaultModel string
}

var _ Provider = (*GeminiProvider)(nil)

// GenerateResponse sends a generateContent request through the GenAI SDK.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("GOOGLE_API_KEY not configured")
	}
	model := stringOption(options, "model", p.DefaultModel)
	if model == "" {
		return "", fmt.Errorf("gemini model not specified")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create GenAI client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(floatOption(options, "temperature", 0))),
	}
	if n := intOption(options, "max_tokens", 0); n > 0 {
		config.MaxOutputTokens = int32(n)
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return result.Text(), nil
}
