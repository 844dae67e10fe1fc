package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProviders struct {
	active  string
	enabled []string
}

func (s staticProviders) GetActiveProvider() string { return s.active }
func (s staticProviders) Enabled() []string { return s.enabled }

func get(t *testing.T, h *Handler) Response {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var out Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandleConfig(t *testing.T) {
	out := get(t, NewHandler(staticProviders{active: "openai", enabled: []string{"deepseek", "openai"}}, []string{"edinet.intent"}))
	assert.Equal(t, "openai", out.ActiveProvider)
	assert.Equal(t, []string{"deepseek", "openai"}, out.Available)
	assert.Equal(t, []string{"edinet.intent"}, out.Prompts)
}

func TestHandleConfig_NoProviders(t *testing.T) {
	out := get(t, NewHandler(nil, nil))
	assert.Empty(t, out.ActiveProvider)
	assert.Equal(t, []string{}, out.Available)
	assert.Nil(t, out.Prompts)
}
