package llmproxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"memgate/internal/apierr"
)

// ollamaBackend speaks Ollama's native /api/chat schema: newline-delimited
// JSON objects, one per token batch, with a final object carrying done=true
// and the eval counters.
type ollamaBackend struct {
	baseURL    string
	httpClient *http.Client
}

func newOllamaBackend(baseURL string, httpClient *http.Client) *ollamaBackend {
	return &ollamaBackend{baseURL: baseURL, httpClient: httpClient}
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

func (b *ollamaBackend) do(ctx context.Context, backendModel string, msgs []Message, opts Options, stream bool) (*http.Response, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    backendModel,
		Messages: msgs,
		Stream:   stream,
		Options: ollamaOptions{
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			NumPredict:  opts.MaxTokens,
		},
	})
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.TransientUpstream, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		kind := apierr.PermanentUpstream
		if resp.StatusCode >= 500 {
			kind = apierr.TransientUpstream
		}
		return nil, apierr.New(kind, fmt.Sprintf("ollama backend: status %d", resp.StatusCode), nil)
	}
	return resp, nil
}

func (b *ollamaBackend) ChatUnary(ctx context.Context, backendModel string, msgs []Message, opts Options) (Response, error) {
	resp, err := b.do(ctx, backendModel, msgs, opts, false)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, apierr.Wrap(apierr.TransientUpstream, err)
	}

	return Response{
		Choices: []Choice{{
			Index: 0,
			Message: Message{
				Role:    "assistant",
				Content: out.Message.Content,
			},
		}},
		Usage: Usage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEvalCount + out.EvalCount,
		},
	}, nil
}

func (b *ollamaBackend) ChatStream(ctx context.Context, backendModel string, msgs []Message, opts Options, emit func(StreamDelta) error) error {
	resp, err := b.do(ctx, backendModel, msgs, opts, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := emit(StreamDelta{Role: "assistant"}); err != nil {
		return err
	}

	scanner := bufio.NewScanner(resp.Body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		if chunk.Message.Content != "" {
			if err := emit(StreamDelta{Content: chunk.Message.Content}); err != nil {
				return err
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return apierr.Wrap(apierr.TransientUpstream, err)
	}
	return emit(StreamDelta{FinishReason: "stop"})
}
