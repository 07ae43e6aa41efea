// Package llmproxy translates the OpenAI chat-completion schema to and from
// a backend LLM's native schema, either a raw Ollama-style HTTP API or an
// OpenAI-compatible one reached through the official SDK client.
package llmproxy

import (
	"context"
)

// Message is one chat turn in the OpenAI wire schema.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage mirrors the OpenAI usage object.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Options carries the generation parameters of a chat-completion request.
type Options struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Choice is one OpenAI-schema completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Response is the unary OpenAI-schema chat-completion response.
type Response struct {
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// StreamDelta is one SSE chunk's content, pre-serialization.
type StreamDelta struct {
	Role         string // set only on the first chunk
	Content      string
	FinishReason string // set only on the final chunk
}

// Backend is satisfied by each supported LLM runtime: a raw Ollama HTTP
// client and an OpenAI-SDK-backed client, selected per model-router entry by
// api_style so C8/C6 wiring stays backend-agnostic.
type Backend interface {
	// ChatUnary returns a complete response for the given model id and
	// messages.
	ChatUnary(ctx context.Context, backendModel string, msgs []Message, opts Options) (Response, error)
	// ChatStream invokes emit for each content delta as it arrives, finishing
	// with a delta carrying FinishReason set. emit returning an error aborts
	// the stream.
	ChatStream(ctx context.Context, backendModel string, msgs []Message, opts Options, emit func(StreamDelta) error) error
}
