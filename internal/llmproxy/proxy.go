package llmproxy

import (
	"context"
	"net/http"
	"sync"

	"memgate/internal/router"
)

// Proxy dispatches chat-completion calls to the right Backend implementation
// for a router entry, caching one Backend instance per distinct base
// URL+api_style pair.
type Proxy struct {
	httpClient *http.Client

	mu       sync.Mutex
	backends map[string]Backend
}

func New(httpClient *http.Client) *Proxy {
	return &Proxy{httpClient: httpClient, backends: make(map[string]Backend)}
}

func (p *Proxy) backendFor(e router.Entry) Backend {
	key := string(e.APIStyle) + "|" + e.BackendURL

	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.backends[key]; ok {
		return b
	}

	var b Backend
	switch e.APIStyle {
	case router.StyleOpenAI:
		b = newOpenAIBackend(e.BackendURL, e.APIKey, p.httpClient)
	default:
		b = newOllamaBackend(e.BackendURL, p.httpClient)
	}
	p.backends[key] = b
	return b
}

// ChatUnary resolves the backend for e and returns a complete response.
func (p *Proxy) ChatUnary(ctx context.Context, e router.Entry, msgs []Message, opts Options) (Response, error) {
	return p.backendFor(e).ChatUnary(ctx, e.BackendID, msgs, opts)
}

// ChatStream resolves the backend for e and streams deltas to emit.
func (p *Proxy) ChatStream(ctx context.Context, e router.Entry, msgs []Message, opts Options, emit func(StreamDelta) error) error {
	return p.backendFor(e).ChatStream(ctx, e.BackendID, msgs, opts, emit)
}
