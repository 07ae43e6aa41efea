package httpapi

import "memgate/internal/llmproxy"

// chatCompletionRequest is the OpenAI-compatible request body for
// /v1/chat/completions, extended with the two fields the gateway needs to
// resolve tenancy and session continuity.
type chatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []llmproxy.Message `json:"messages"`
	Temperature float64           `json:"temperature"`
	TopP        float64           `json:"top_p"`
	MaxTokens   int               `json:"max_tokens"`
	Stream      bool              `json:"stream"`
	SessionID   string            `json:"session_id"`
	Workspace   string            `json:"workspace"`
}

// chatCompletionResponse is the OpenAI-compatible unary response envelope.
type chatCompletionResponse struct {
	ID      string           `json:"id"`
	Object  string           `json:"object"`
	Created int64            `json:"created"`
	Model   string           `json:"model"`
	Choices []llmproxy.Choice `json:"choices"`
	Usage   llmproxy.Usage   `json:"usage"`
}

// chatCompletionChunkDelta is one choice's incremental content in a streamed
// chunk; Role is set only on the first chunk, FinishReason only on the last.
type chatCompletionChunkDelta struct {
	Role         string `json:"role,omitempty"`
	Content      string `json:"content,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

type chatCompletionChunkChoice struct {
	Index        int                       `json:"index"`
	Delta        chatCompletionChunkDelta  `json:"delta"`
	FinishReason *string                   `json:"finish_reason"`
}

type chatCompletionChunk struct {
	ID      string                      `json:"id"`
	Object  string                      `json:"object"`
	Created int64                       `json:"created"`
	Model   string                      `json:"model"`
	Choices []chatCompletionChunkChoice `json:"choices"`
}

// modelInfo is one entry of GET /v1/models.
type modelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// sessionInfo is one entry of GET /v1/sessions. has_summary is derived, never
// persisted.
type sessionInfo struct {
	ID           string `json:"id"`
	Workspace    string `json:"workspace"`
	Model        string `json:"model"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	HasSummary   bool   `json:"has_summary"`
	MessageCount int    `json:"message_count"`
}

// jobStatusResponse mirrors an ingest job row verbatim.
type jobStatusResponse struct {
	ID          string         `json:"id"`
	DocID       string         `json:"doc_id"`
	Workspace   string         `json:"workspace"`
	JobType     string         `json:"job_type"`
	Status      string         `json:"status"`
	CreatedAt   string         `json:"created_at"`
	StartedAt   *string        `json:"started_at,omitempty"`
	CompletedAt *string        `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	Attempts    int            `json:"attempts"`
}

// ingestResponse is shared by the document and codebase ingest endpoints;
// job_type differs, not the shape.
type ingestResponse struct {
	DocID          string `json:"doc_id"`
	JobID          string `json:"job_id"`
	Workspace      string `json:"workspace"`
	OriginalSize   int64  `json:"original_size"`
	CompressedSize int64  `json:"compressed_size"`
	Status         string `json:"status"`
}

// errorBody is the OpenAI-style error envelope.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}
