// Package router maps an external model alias to the backend that serves it,
// loaded once at startup from a YAML table (the teacher's config-by-file
// idiom, generalized from models.yaml rather than hand-maintained in code).
package router

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// APIStyle selects which llmproxy.Backend implementation a router entry uses.
type APIStyle string

const (
	StyleOllama APIStyle = "ollama"
	StyleOpenAI APIStyle = "openai"
)

// Entry is one row of the model table: an external alias bound to a backend.
type Entry struct {
	Alias      string   `yaml:"alias"`
	BackendURL string   `yaml:"backend_url"`
	BackendID  string   `yaml:"backend_model"`
	APIStyle   APIStyle `yaml:"api_style"`
	APIKey     string   `yaml:"api_key"`
}

type fileFormat struct {
	Models []Entry `yaml:"models"`
}

// ErrUnknownModel is returned by Resolve for an alias with no table entry.
var ErrUnknownModel = fmt.Errorf("router: unknown model alias")

// Router resolves external model aliases to backend routing information.
type Router struct {
	byAlias map[string]Entry
	order   []string
}

// Load reads and parses a YAML model table from path.
func Load(path string) (*Router, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("router: read %s: %w", path, err)
	}
	var ff fileFormat
	if err := yaml.Unmarshal(raw, &ff); err != nil {
		return nil, fmt.Errorf("router: parse %s: %w", path, err)
	}
	return New(ff.Models), nil
}

// New builds a Router from an already-parsed entry list, defaulting
// APIStyle to "ollama" when unset.
func New(entries []Entry) *Router {
	r := &Router{byAlias: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.APIStyle == "" {
			e.APIStyle = StyleOllama
		}
		if _, exists := r.byAlias[e.Alias]; exists {
			continue
		}
		r.byAlias[e.Alias] = e
		r.order = append(r.order, e.Alias)
	}
	return r
}

// Resolve returns the backend entry for alias, or ErrUnknownModel.
func (r *Router) Resolve(alias string) (Entry, error) {
	e, ok := r.byAlias[alias]
	if !ok {
		return Entry{}, ErrUnknownModel
	}
	return e, nil
}

// List returns the distinct aliases, deduplicated by backend URL so each
// backend appears once; first-registered alias for a given backend wins.
func (r *Router) List() []string {
	seenBackends := make(map[string]bool, len(r.order))
	out := make([]string, 0, len(r.order))
	for _, alias := range r.order {
		e := r.byAlias[alias]
		if seenBackends[e.BackendURL] {
			continue
		}
		seenBackends[e.BackendURL] = true
		out = append(out, alias)
	}
	return out
}
