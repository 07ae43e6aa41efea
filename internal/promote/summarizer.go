package promote

import (
	"context"
	"strings"
	"time"

	"memgate/internal/llmproxy"
	"memgate/internal/router"
)

// Summarizer calls the external summarizer LLM through the same Ollama-style
// proxy the gateway uses for chat backends, fixing generation parameters to
// the third-person, bounded-length summary the promoter requires.
type Summarizer struct {
	proxy *llmproxy.Proxy
	entry router.Entry
}

// NewSummarizer targets the summarizer endpoint as a plain Ollama-style
// backend (it is not model-routed, so it bypasses the router table).
func NewSummarizer(proxy *llmproxy.Proxy, baseURL, model string) *Summarizer {
	return &Summarizer{
		proxy: proxy,
		entry: router.Entry{Alias: "summarizer", BackendURL: baseURL, BackendID: model, APIStyle: router.StyleOllama},
	}
}

const summarizerSystemPrompt = "Summarize the following conversation transcript in the third person, in 500 words or fewer. Be concise and factual."

// Summarize returns the trimmed summary text, or "" if the summarizer
// produced no content.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()
	msgs := []llmproxy.Message{
		{Role: "system", Content: summarizerSystemPrompt},
		{Role: "user", Content: transcript},
	}
	resp, err := s.proxy.ChatUnary(ctx, s.entry, msgs, llmproxy.Options{Temperature: 0.3, MaxTokens: 1024})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
