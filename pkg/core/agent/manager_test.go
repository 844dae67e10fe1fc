package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	options map[string]interface{}
	reply   string
}

func (s *stubProvider) GenerateResponse(_ context.Context, prompt, _ string, options map[string]interface{}) (string, error) {
	s.options = options
	return s.reply + prompt, nil
}

func TestNewManager_EnablesConfiguredProviders(t *testing.T) {
	m := NewManager(Config{
		OpenAIAPIKey:      "o",
		AzureOpenAIAPIKey: "a", // no endpoint: stays disabled
		AnthropicAPIKey:   "c",
		GoogleAPIKey:      "g",
	}, nil, nil)

	assert.Equal(t, []string{ProviderAnthropic, ProviderGoogle, ProviderOpenAI}, m.Enabled())
	_, ok := m.GetProviderByName(ProviderAzureOpenAI)
	assert.False(t, ok)
}

func TestExecutePrompt(t *testing.T) {
	m := NewManager(Config{ActiveProvider: "stub"}, nil, nil)
	stub := &stubProvider{reply: "echo:"}
	m.Register("stub", stub)

	out, err := m.ExecutePrompt(context.Background(), "", "model-x", "hi", "", 300)
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", out)
	assert.Equal(t, "model-x", stub.options["model"])
	assert.Equal(t, 300, stub.options["max_tokens"])

	_, err = m.ExecutePrompt(context.Background(), ProviderDeepSeek, "", "hi", "", 0)
	assert.ErrorIs(t, err, ErrProviderDisabled)
}
