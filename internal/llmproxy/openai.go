package llmproxy

import (
	"context"
	"net/http"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"

	"memgate/internal/apierr"
)

// openaiBackend issues chat completions through the official SDK client,
// used for router entries flagged api_style=openai (cloud OpenAI-compatible
// endpoints, or Ollama's own /v1 compatibility surface).
type openaiBackend struct {
	sdk sdk.Client
}

func newOpenAIBackend(baseURL, apiKey string, httpClient *http.Client) *openaiBackend {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &openaiBackend{sdk: sdk.NewClient(opts...)}
}

func adaptMessages(msgs []Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, sdk.SystemMessage(m.Content))
		case "assistant":
			out = append(out, sdk.AssistantMessage(m.Content))
		default:
			out = append(out, sdk.UserMessage(m.Content))
		}
	}
	return out
}

func (b *openaiBackend) ChatUnary(ctx context.Context, backendModel string, msgs []Message, opts Options) (Response, error) {
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(backendModel),
		Messages: adaptMessages(msgs),
	}
	if opts.Temperature != 0 {
		params.Temperature = param.NewOpt(opts.Temperature)
	}
	if opts.TopP != 0 {
		params.TopP = param.NewOpt(opts.TopP)
	}
	if opts.MaxTokens != 0 {
		params.MaxTokens = param.NewOpt(int64(opts.MaxTokens))
	}

	comp, err := b.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, apierr.Wrap(apierr.TransientUpstream, err)
	}

	resp := Response{
		Usage: Usage{
			PromptTokens:     int(comp.Usage.PromptTokens),
			CompletionTokens: int(comp.Usage.CompletionTokens),
			TotalTokens:      int(comp.Usage.TotalTokens),
		},
	}
	for i, c := range comp.Choices {
		resp.Choices = append(resp.Choices, Choice{
			Index:        i,
			Message:      Message{Role: "assistant", Content: c.Message.Content},
			FinishReason: string(c.FinishReason),
		})
	}
	return resp, nil
}

func (b *openaiBackend) ChatStream(ctx context.Context, backendModel string, msgs []Message, opts Options, emit func(StreamDelta) error) error {
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(backendModel),
		Messages: adaptMessages(msgs),
	}
	if opts.Temperature != 0 {
		params.Temperature = param.NewOpt(opts.Temperature)
	}
	if opts.TopP != 0 {
		params.TopP = param.NewOpt(opts.TopP)
	}
	if opts.MaxTokens != 0 {
		params.MaxTokens = param.NewOpt(int64(opts.MaxTokens))
	}

	if err := emit(StreamDelta{Role: "assistant"}); err != nil {
		return err
	}

	stream := b.sdk.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			if err := emit(StreamDelta{Content: delta.Content}); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return apierr.Wrap(apierr.TransientUpstream, err)
	}
	return emit(StreamDelta{FinishReason: "stop"})
}
