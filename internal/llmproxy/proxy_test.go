package llmproxy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"memgate/internal/router"
)

func TestBackendForCachesByStyleAndURL(t *testing.T) {
	p := New(nil)
	e := router.Entry{Alias: "llama3", BackendURL: "http://ollama:11434", BackendID: "llama3:8b", APIStyle: router.StyleOllama}

	b1 := p.backendFor(e)
	b2 := p.backendFor(e)
	require.Same(t, b1, b2)

	_, ok := b1.(*ollamaBackend)
	require.True(t, ok)
}

func TestBackendForSelectsOpenAIStyle(t *testing.T) {
	p := New(nil)
	e := router.Entry{Alias: "gpt-4o", BackendURL: "https://api.openai.com", BackendID: "gpt-4o", APIStyle: router.StyleOpenAI, APIKey: "sk-test"}

	b := p.backendFor(e)
	_, ok := b.(*openaiBackend)
	require.True(t, ok)
}
