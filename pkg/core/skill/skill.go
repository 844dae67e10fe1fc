// Package skill defines the contract between the chat layer and the
// question-answering skills it can call. A skill turns one user message into
// a self-contained plain-text report that the caller injects verbatim as
// grounding context for its own model call.
package skill

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Metadata describes a skill to callers.
type Metadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Message is one prior turn of the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Context carries the caller's model selection. Both fields are optional; a
// nil *Context is valid.
type Context struct {
	ProviderID string `json:"provider_id,omitempty"`
	Model      string `json:"model,omitempty"`
}

// Skill is implemented by every skill. Run must not panic and never fails:
// problems are described in the returned text.
type Skill interface {
	Metadata() Metadata
	Run(ctx context.Context, userText string, history []Message, sc *Context) string
}

// Registry maps skill ids to implementations. Skills are registered
// explicitly by the binary at startup.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]Skill)}
}

// Register adds s. Registering the same id twice is an error.
func (r *Registry) Register(s Skill) error {
	id := s.Metadata().ID
	if id == "" {
		return fmt.Errorf("skill has no id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.skills[id]; dup {
		return fmt.Errorf("skill %q already registered", id)
	}
	r.skills[id] = s
	return nil
}

// Get looks up a skill by id.
func (r *Registry) Get(id string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[id]
	return s, ok
}

// List returns the registered skills sorted by id.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s.Metadata())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Option returns the provider and model, tolerating a nil receiver.
func (c *Context) Option() (providerID, model string) {
	if c == nil {
		return "", ""
	}
	return c.ProviderID, c.Model
}
