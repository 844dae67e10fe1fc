package prompt

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"edinet_qa/pkg/core/utils"
)

//go:embed builtin/*.hjson
var builtinFS embed.FS

// Library holds templates by id and is safe for concurrent use.
type Library struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

var (
	defaultLib  *Library
	defaultOnce sync.Once
)

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{templates: make(map[string]*Template)}
}

// Default returns the shared library of built-in prompts.
func Default() *Library {
	defaultOnce.Do(func() {
		lib, err := Builtin()
		if err != nil {
			panic(err)
		}
		defaultLib = lib
	})
	return defaultLib
}

// Builtin returns a fresh library holding the compiled-in prompts.
func Builtin() (*Library, error) {
	lib := NewLibrary()
	if err := lib.loadFS(builtinFS, "builtin"); err != nil {
		return nil, fmt.Errorf("load builtin prompts: %w", err)
	}
	return lib, nil
}

// Register compiles t and stores it, replacing any template with its id.
func (l *Library) Register(t *Template) error {
	if err := t.compile(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[t.ID] = t
	return nil
}

// Get returns the template with the id.
func (l *Library) Get(id string) (*Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if t, ok := l.templates[id]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("prompt not found: %s", id)
}

// Render looks up id and executes it.
func (l *Library) Render(id string, vars interface{}) (user, system string, err error) {
	t, err := l.Get(id)
	if err != nil {
		return "", "", err
	}
	return t.Render(vars)
}

// IDs lists the registered ids in order.
func (l *Library) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.templates))
	for id := range l.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WithOverrides copies the library and loads every .hjson or .json file
// under dir on top. An id missing from a file is derived from its path,
// e.g. edinet/intent.hjson becomes edinet.intent.
func (l *Library) WithOverrides(dir string) (*Library, error) {
	out := NewLibrary()
	l.mu.RLock()
	for id, t := range l.templates {
		out.templates[id] = t
	}
	l.mu.RUnlock()
	if err := out.loadFS(os.DirFS(dir), "."); err != nil {
		return nil, fmt.Errorf("load prompts from %s: %w", dir, err)
	}
	return out, nil
}

func (l *Library) loadFS(fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := filepath.Ext(path)
		if d.IsDir() || (ext != ".hjson" && ext != ".json") {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		t, err := decode(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if t.ID == "" {
			rel := strings.TrimPrefix(strings.TrimPrefix(path, root), "/")
			t.ID = strings.ReplaceAll(strings.TrimSuffix(rel, ext), "/", ".")
		}
		return l.Register(t)
	})
}

// decode accepts Hjson, which is a superset of JSON.
func decode(data []byte) (*Template, error) {
	normalized, err := utils.ParseHJSON(string(data))
	if err != nil {
		return nil, err
	}
	var t Template
	if err := json.Unmarshal([]byte(normalized), &t); err != nil {
		return nil, err
	}
	return &t, nil
}
