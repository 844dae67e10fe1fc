// Package skill exposes registered skills over HTTP.
package skill

import (
	"encoding/json"
	"net/http"
	"strings"

	coreSkill "edinet_qa/pkg/core/skill"

	"go.uber.org/zap"
)

// maxBodyBytes bounds a run request.
const maxBodyBytes = 1 << 20

// RunRequest is the body of POST /api/skills/{id}/run.
type RunRequest struct {
	Text       string              `json:"text"`
	History    []coreSkill.Message `json:"history,omitempty"`
	ProviderID string              `json:"provider_id,omitempty"`
	Model      string              `json:"model,omitempty"`
}

// RunResponse carries the skill report.
type RunResponse struct {
	Report string `json:"report"`
}

// Handler holds dependencies for skill endpoints
type Handler struct {
	registry *coreSkill.Registry
	logger   *zap.Logger
}

// NewHandler creates a new skill handler
func NewHandler(registry *coreSkill.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, logger: logger}
}

// Register mounts the endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/skills", h.HandleList)
	mux.HandleFunc("POST /api/skills/{id}/run", h.HandleRun)
	mux.HandleFunc("OPTIONS /api/skills/{id}/run", h.HandleRun)
}

func cors(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// HandleList returns the registered skills.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	cors(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.registry.List())
}

// HandleRun runs one skill and returns its report.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	id := r.PathValue("id")
	s, ok := h.registry.Get(id)
	if !ok {
		http.Error(w, "unknown skill: "+id, http.StatusNotFound)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	h.logger.Info("skill run", zap.String("skill", id), zap.String("provider", req.ProviderID), zap.String("model", req.Model))
	report := s.Run(r.Context(), req.Text, req.History, &coreSkill.Context{ProviderID: req.ProviderID, Model: req.Model})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(RunResponse{Report: report}); err != nil {
		h.logger.Warn("write response failed", zap.Error(err))
	}
}
