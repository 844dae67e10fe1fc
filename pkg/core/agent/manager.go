package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"edinet_qa/pkg/core/llm"

	"go.uber.org/zap"
)

// Provider ids.
const (
	ProviderOpenAI      = "openai"
	ProviderAzureOpenAI = "azure_openai"
	ProviderDeepSeek    = "deepseek"
	ProviderAnthropic   = "anthropic"
	ProviderGoogle      = "google"
)

// ErrProviderDisabled means no credentials were configured for the provider.
var ErrProviderDisabled = errors.New("provider is not enabled")

// Config holds provider credentials. A provider is enabled when its key is set.
type Config struct {
	ActiveProvider      string `yaml:"active_provider"`
	OpenAIAPIKey        string `yaml:"openai_api_key"`
	AzureOpenAIAPIKey   string `yaml:"azure_openai_api_key"`
	AzureOpenAIEndpoint string `yaml:"azure_openai_endpoint"`
	DeepSeekAPIKey      string `yaml:"deepseek_api_key"`
	DeepSeekBaseURL     string `yaml:"deepseek_base_url"`
	AnthropicAPIKey     string `yaml:"anthropic_api_key"`
	GoogleAPIKey        string `yaml:"google_api_key"`
}

// Manager maps provider ids to configured providers.
type Manager struct {
	active    string
	providers map[string]llm.Provider
	logger    *zap.Logger
}

// NewManager enables every provider with credentials. httpClient may be nil.
func NewManager(config Config, httpClient *http.Client, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{active: config.ActiveProvider, providers: make(map[string]llm.Provider), logger: logger}

	if config.OpenAIAPIKey != "" {
		m.providers[ProviderOpenAI] = &llm.ChatCompletionsProvider{
			Name: ProviderOpenAI, BaseURL: "https://api.openai.com/v1", APIKey: config.OpenAIAPIKey,
			DefaultModel: "gpt-4o-mini", HTTPClient: httpClient,
		}
	}
	if config.AzureOpenAIAPIKey != "" && config.AzureOpenAIEndpoint != "" {
		m.providers[ProviderAzureOpenAI] = &llm.ChatCompletionsProvider{
			Name: ProviderAzureOpenAI, BaseURL: strings.TrimRight(config.AzureOpenAIEndpoint, "/") + "/openai/v1",
			APIKey: config.AzureOpenAIAPIKey, AzureAuth: true, HTTPClient: httpClient,
		}
	}
	if config.DeepSeekAPIKey != "" {
		base := config.DeepSeekBaseURL
		if base == "" {
			base = "https://api.deepseek.com"
		}
		m.providers[ProviderDeepSeek] = &llm.ChatCompletionsProvider{
			Name: ProviderDeepSeek, BaseURL: base, APIKey: config.DeepSeekAPIKey,
			DefaultModel: "deepseek-chat", HTTPClient: httpClient,
		}
	}
	if config.AnthropicAPIKey != "" {
		m.providers[ProviderAnthropic] = &llm.AnthropicProvider{
			APIKey: config.AnthropicAPIKey, DefaultModel: "claude-3-5-haiku-latest", HTTPClient: httpClient,
		}
	}
	if config.GoogleAPIKey != "" {
		m.providers[ProviderGoogle] = &llm.GeminiProvider{APIKey: config.GoogleAPIKey, DefaultModel: "gemini-2.0-flash"}
	}
	return m
}

// Register adds or replaces a provider.
func (m *Manager) Register(id string, p llm.Provider) {
	m.providers[id] = p
}

// GetProviderByName returns the provider for id.
func (m *Manager) GetProviderByName(id string) (llm.Provider, bool) {
	p, ok := m.providers[id]
	return p, ok
}

// Enabled lists the configured provider ids.
func (m *Manager) Enabled() []string {
	ids := make([]string, 0, len(m.providers))
	for id := range m.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetActiveProvider returns the default provider id.
func (m *Manager) GetActiveProvider() string { return m.active }

// ExecutePrompt runs one prompt against providerID, or the active provider
// when providerID is empty. An empty model uses the provider default.
func (m *Manager) ExecutePrompt(ctx context.Context, providerID, model, prompt, systemPrompt string, maxTokens int) (string, error) {
	if providerID == "" {
		providerID = m.active
	}
	p, ok := m.providers[providerID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderDisabled, providerID)
	}
	options := map[string]interface{}{"temperature": 0.0}
	if model != "" {
		options["model"] = model
	}
	if maxTokens > 0 {
		options["max_tokens"] = maxTokens
	}
	m.logger.Debug("llm prompt", zap.String("provider", providerID), zap.String("model", model), zap.Int("prompt_len", len(prompt)))
	return p.GenerateResponse(ctx, prompt, systemPrompt, options)
}
