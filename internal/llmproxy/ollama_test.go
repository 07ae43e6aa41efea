package llmproxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOllamaChatUnaryParsesCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"hi there"},"done":true,"prompt_eval_count":12,"eval_count":5}`))
	}))
	defer srv.Close()

	b := newOllamaBackend(srv.URL, srv.Client())
	resp, err := b.ChatUnary(context.Background(), "llama3:8b", []Message{{Role: "user", Content: "hi"}}, Options{})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	require.Equal(t, "hi there", resp.Choices[0].Message.Content)
	require.Equal(t, 12, resp.Usage.PromptTokens)
	require.Equal(t, 5, resp.Usage.CompletionTokens)
	require.Equal(t, 17, resp.Usage.TotalTokens)
}

func TestOllamaChatStreamEmitsRoleThenDeltasThenFinish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{\"message\":{\"role\":\"assistant\",\"content\":\"hel\"},\"done\":false}\n"))
		_, _ = w.Write([]byte("{\"message\":{\"role\":\"assistant\",\"content\":\"lo\"},\"done\":false}\n"))
		_, _ = w.Write([]byte("{\"message\":{\"role\":\"assistant\",\"content\":\"\"},\"done\":true,\"prompt_eval_count\":1,\"eval_count\":2}\n"))
	}))
	defer srv.Close()

	b := newOllamaBackend(srv.URL, srv.Client())
	var deltas []StreamDelta
	err := b.ChatStream(context.Background(), "llama3:8b", []Message{{Role: "user", Content: "hi"}}, Options{}, func(d StreamDelta) error {
		deltas = append(deltas, d)
		return nil
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(deltas), 4)
	require.Equal(t, "assistant", deltas[0].Role)
	require.Equal(t, "hel", deltas[1].Content)
	require.Equal(t, "lo", deltas[2].Content)
	require.Equal(t, "stop", deltas[len(deltas)-1].FinishReason)
}
