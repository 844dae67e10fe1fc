package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionsProvider(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "sk-test", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"companies\":[]}"}}]}`))
	}))
	defer srv.Close()

	p := &ChatCompletionsProvider{Name: "azure_openai", BaseURL: srv.URL + "/v1/", APIKey: "sk-test", DefaultModel: "gpt-x", AzureAuth: true}
	out, err := p.GenerateResponse(context.Background(), "question", "system", map[string]interface{}{"max_tokens": 300})

	require.NoError(t, err)
	assert.Equal(t, `{"companies":[]}`, out)
	assert.Equal(t, "gpt-x", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "question", got.Messages[1].Content)
}

func TestChatCompletionsProvider_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	ctx := context.Background()

	_, err := (&ChatCompletionsProvider{Name: "deepseek", BaseURL: srv.URL, APIKey: "k", DefaultModel: "m"}).GenerateResponse(ctx, "q", "", nil)
	assert.ErrorContains(t, err, "DEEPSEEK_API_ERROR: status=429")

	_, err = (&ChatCompletionsProvider{Name: "openai", BaseURL: srv.URL}).GenerateResponse(ctx, "q", "", nil)
	assert.ErrorContains(t, err, "OPENAI_API_KEY_MISSING")
}

func TestAnthropicProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "ak", r.Header.Get("x-api-key"))
		var req AnthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, 1024, req.MaxTokens)
		w.Write([]byte(`{"content":[{"type":"text","text":"E00003"},{"type":"tool_use"}]}`))
	}))
	defer srv.Close()

	p := &AnthropicProvider{APIKey: "ak", BaseURL: srv.URL}
	out, err := p.GenerateResponse(context.Background(), "pick", "", map[string]interface{}{"model": "claude-test"})

	require.NoError(t, err)
	assert.Equal(t, "E00003", out)
}
