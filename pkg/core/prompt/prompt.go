// Package prompt keeps the model prompts used by the question pipeline.
// Templates are Hjson documents; the built-in set is compiled into the
// binary and a directory of files can override entries by id.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"
)

// Template is one prompt. UserTmpl is a text/template executed with the
// caller's variables.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	System      string `json:"system_prompt"`
	UserTmpl    string `json:"user_prompt_template"`

	parsed *template.Template
}

// Built-in prompt ids.
const (
	IntentID       = "edinet.intent"
	DisambiguateID = "edinet.disambiguate"
	RerankID       = "edinet.rerank"
)

func (t *Template) compile() error {
	if t.ID == "" {
		return fmt.Errorf("prompt id cannot be empty")
	}
	parsed, err := template.New(t.ID).Option("missingkey=error").Parse(t.UserTmpl)
	if err != nil {
		return fmt.Errorf("parse prompt %s: %w", t.ID, err)
	}
	t.parsed = parsed
	return nil
}

// Render executes the user template and returns it with the system prompt.
func (t *Template) Render(vars interface{}) (user, system string, err error) {
	var buf bytes.Buffer
	if err := t.parsed.Execute(&buf, vars); err != nil {
		return "", "", fmt.Errorf("render prompt %s: %w", t.ID, err)
	}
	return buf.String(), t.System, nil
}
