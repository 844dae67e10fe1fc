// Package config reports which model providers a server can use.
package config

import (
	"encoding/json"
	"net/http"
)

// Response is the body of GET /api/config. Callers pick a provider_id for
// skill runs from Available.
type Response struct {
	ActiveProvider string   `json:"active_provider"`
	Available      []string `json:"available"`
	Prompts        []string `json:"prompts,omitempty"`
}

// Providers is the part of agent.Manager the handler reads.
type Providers interface {
	GetActiveProvider() string
	Enabled() []string
}

// Handler holds dependencies for config endpoints
type Handler struct {
	providers Providers
	prompts   []string
}

// NewHandler creates a new config handler. promptIDs lists the loaded
// prompt templates and may be empty.
func NewHandler(providers Providers, promptIDs []string) *Handler {
	return &Handler{providers: providers, prompts: promptIDs}
}

// Register mounts the endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/config", h.HandleConfig)
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers for local dev
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	resp := Response{Available: []string{}, Prompts: h.prompts}
	if h.providers != nil {
		resp.ActiveProvider = h.providers.GetActiveProvider()
		if enabled := h.providers.Enabled(); len(enabled) > 0 {
			resp.Available = enabled
		}
	}
	json.NewEncoder(w).Encode(resp)
}
