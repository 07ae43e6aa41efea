package router

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveUnknownAlias(t *testing.T) {
	r := New([]Entry{{Alias: "llama3", BackendURL: "http://a", BackendID: "llama3:8b"}})
	_, err := r.Resolve("gpt-4")
	require.ErrorIs(t, err, ErrUnknownModel)
}

func TestResolveDefaultsAPIStyle(t *testing.T) {
	r := New([]Entry{{Alias: "llama3", BackendURL: "http://a", BackendID: "llama3:8b"}})
	e, err := r.Resolve("llama3")
	require.NoError(t, err)
	require.Equal(t, StyleOllama, e.APIStyle)
}

func TestListDedupesByBackendURL(t *testing.T) {
	r := New([]Entry{
		{Alias: "llama3", BackendURL: "http://a", BackendID: "llama3:8b"},
		{Alias: "llama3-instruct", BackendURL: "http://a", BackendID: "llama3:8b-instruct"},
		{Alias: "gpt-4o", BackendURL: "http://b", BackendID: "gpt-4o", APIStyle: StyleOpenAI},
	})
	require.Equal(t, []string{"llama3", "gpt-4o"}, r.List())
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.yaml")
	content := `
models:
  - alias: llama3
    backend_url: http://ollama:11434
    backend_model: llama3:8b
  - alias: gpt-4o
    backend_url: https://api.openai.com
    backend_model: gpt-4o
    api_style: openai
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	e, err := r.Resolve("gpt-4o")
	require.NoError(t, err)
	require.Equal(t, StyleOpenAI, e.APIStyle)
}
