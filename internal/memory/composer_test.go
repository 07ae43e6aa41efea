package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"memgate/internal/kgclient"
	"memgate/internal/llmproxy"
	"memgate/internal/persistence"
)

func TestSplitSystemExtractsFirstSystemMessage(t *testing.T) {
	msgs := []llmproxy.Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "hi"},
		{Role: "system", Content: "ignored, not first"},
	}
	system, rest := splitSystem(msgs)
	require.Equal(t, "be helpful", system)
	require.Len(t, rest, 2)
	require.Equal(t, "user", rest[0].Role)
	require.Equal(t, "system", rest[1].Role)
}

func TestSplitSystemNoSystemMessage(t *testing.T) {
	msgs := []llmproxy.Message{{Role: "user", Content: "hi"}}
	system, rest := splitSystem(msgs)
	require.Empty(t, system)
	require.Len(t, rest, 1)
}

func TestLastNonEmptyUserContent(t *testing.T) {
	msgs := []llmproxy.Message{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "   "},
		{Role: "user", Content: "second"},
	}
	require.Equal(t, "second", lastNonEmptyUserContent(msgs))
}

func TestLastNonEmptyUserContentNoUser(t *testing.T) {
	msgs := []llmproxy.Message{{Role: "assistant", Content: "hi"}}
	require.Empty(t, lastNonEmptyUserContent(msgs))
}

func TestFormatRecallFiltersByThresholdAndSortsDescending(t *testing.T) {
	hits := []persistence.RecallHit{
		{SessionID: "a", Summary: "low relevance", Score: 0.10},
		{SessionID: "b", Summary: "highest", Score: 0.91},
		{SessionID: "c", Summary: "mid", Score: 0.42},
	}
	out := formatRecall(hits)
	require.Contains(t, out, "highest")
	require.Contains(t, out, "mid")
	require.NotContains(t, out, "low relevance")
	require.Less(t, indexOf(out, "highest"), indexOf(out, "mid"))
}

func TestFormatRecallEmptyWhenNoneAboveThreshold(t *testing.T) {
	hits := []persistence.RecallHit{{SessionID: "a", Summary: "noise", Score: 0.05}}
	require.Empty(t, formatRecall(hits))
}

func TestFormatArchivalCapsAndTruncates(t *testing.T) {
	entities := make([]kgclient.Entity, 0, maxArchivalEntities+5)
	for i := 0; i < maxArchivalEntities+5; i++ {
		entities = append(entities, kgclient.Entity{Name: "e", Type: "PERSON", Description: "d"})
	}
	longContent := make([]byte, archivalChunkChars+50)
	for i := range longContent {
		longContent[i] = 'x'
	}
	result := kgclient.QueryResult{
		Entities: entities,
		Chunks:   []kgclient.Chunk{{Content: string(longContent)}},
	}
	out := formatArchival(result)
	require.Equal(t, maxArchivalEntities, countLines(out, "[PERSON] e: d"))
	require.Contains(t, out, "…")
}

func TestFormatArchivalEmptyWhenNoData(t *testing.T) {
	require.Empty(t, formatArchival(kgclient.QueryResult{}))
}

func TestBuildMemoryBlockOmitsEmptySections(t *testing.T) {
	block := buildMemoryBlock(kgclient.QueryResult{}, nil)
	require.Empty(t, block)

	block = buildMemoryBlock(kgclient.QueryResult{}, []persistence.RecallHit{{SessionID: "a", Summary: "s", Score: 0.9}})
	require.NotContains(t, block, "<archival_memory>")
	require.Contains(t, block, "<recall_memory>")

	block = buildMemoryBlock(kgclient.QueryResult{Entities: []kgclient.Entity{{Name: "n", Type: "T", Description: "d"}}}, nil)
	require.Contains(t, block, "<archival_memory>")
	require.NotContains(t, block, "<recall_memory>")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func countLines(s, substr string) int {
	n := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			n++
		}
	}
	return n
}
