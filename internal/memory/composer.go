// Package memory implements the three-tier memory composer: given an
// incoming chat request it concurrently gathers short-term, recall, and
// archival context and rewrites the message list the backend LLM sees.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"memgate/internal/kgclient"
	"memgate/internal/llmproxy"
	"memgate/internal/observability"
	"memgate/internal/persistence"
	"memgate/internal/rag/embedder"
	"memgate/internal/shortterm"
)

const recallScoreThreshold = 0.30

const (
	maxArchivalEntities  = 30
	maxArchivalRelations = 20
	maxArchivalChunks    = 5
	archivalChunkChars   = 500
)

// Composer builds the augmented message list presented to a backend LLM from
// the three memory tiers, per request.
type Composer struct {
	ShortTerm *shortterm.Buffer
	Recall    persistence.RecallStore
	KG        *kgclient.Client
	Embedder  embedder.Embedder

	RecallTopK   int
	ArchivalTopK int
}

// Compose implements the algorithm: split system/non-system messages, pick
// the query, fetch the three tiers concurrently with failure isolation, then
// rebuild the message list with a synthesized system message carrying any
// memory block found.
func (c *Composer) Compose(ctx context.Context, workspace, sessionID string, msgs []llmproxy.Message) []llmproxy.Message {
	systemMsg, rest := splitSystem(msgs)

	query := lastNonEmptyUserContent(rest)
	if query == "" {
		return msgs
	}

	var (
		wg             sync.WaitGroup
		shortTermTurns []shortterm.Turn
		recallHits     []persistence.RecallHit
		archival       kgclient.QueryResult
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		turns, err := c.ShortTerm.Recent(ctx, workspace, sessionID, 0)
		if err != nil {
			observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("memory: short-term fetch failed")
			return
		}
		shortTermTurns = turns
	}()
	go func() {
		defer wg.Done()
		hits, err := c.fetchRecall(ctx, workspace, sessionID, query)
		if err != nil {
			observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("memory: recall fetch failed")
			return
		}
		recallHits = hits
	}()
	go func() {
		defer wg.Done()
		if c.KG == nil {
			return
		}
		result, err := c.KG.Query(ctx, workspace, query, kgclient.ModeHybrid)
		if err != nil {
			observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("memory: archival fetch failed")
			return
		}
		archival = result
	}()
	wg.Wait()

	block := buildMemoryBlock(archival, recallHits)

	out := make([]llmproxy.Message, 0, len(msgs)+len(shortTermTurns))
	switch {
	case block != "" && systemMsg != "":
		out = append(out, llmproxy.Message{Role: "system", Content: systemMsg + "\n\n--- Relevant Memory ---\n" + block})
	case block != "":
		out = append(out, llmproxy.Message{Role: "system", Content: "--- Relevant Memory ---\n" + block})
	case systemMsg != "":
		out = append(out, llmproxy.Message{Role: "system", Content: systemMsg})
	}

	// The last short-term turn is the current user message, already present
	// in rest; drop it so it isn't duplicated.
	if n := len(shortTermTurns); n > 0 {
		for _, t := range shortTermTurns[:n-1] {
			out = append(out, llmproxy.Message{Role: t.Role, Content: t.Content})
		}
	}
	out = append(out, rest...)
	return out
}

func (c *Composer) fetchRecall(ctx context.Context, workspace, sessionID, query string) ([]persistence.RecallHit, error) {
	if c.Recall == nil || c.Embedder == nil {
		return nil, nil
	}
	vectors, err := c.Embedder.EmbedBatch(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		return nil, err
	}
	topK := c.RecallTopK
	if topK <= 0 {
		topK = 3
	}
	return c.Recall.SearchRecall(ctx, workspace, sessionID, vectors[0], topK)
}

func splitSystem(msgs []llmproxy.Message) (string, []llmproxy.Message) {
	var system string
	rest := make([]llmproxy.Message, 0, len(msgs))
	taken := false
	for _, m := range msgs {
		if !taken && m.Role == "system" {
			system = m.Content
			taken = true
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

func lastNonEmptyUserContent(msgs []llmproxy.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" && strings.TrimSpace(msgs[i].Content) != "" {
			return msgs[i].Content
		}
	}
	return ""
}

func buildMemoryBlock(archival kgclient.QueryResult, recallHits []persistence.RecallHit) string {
	var sections []string
	if s := formatArchival(archival); s != "" {
		sections = append(sections, "<archival_memory>\n"+s+"\n</archival_memory>")
	}
	if s := formatRecall(recallHits); s != "" {
		sections = append(sections, "<recall_memory>\n"+s+"\n</recall_memory>")
	}
	return strings.Join(sections, "\n\n")
}

func formatRecall(hits []persistence.RecallHit) string {
	filtered := make([]persistence.RecallHit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= recallScoreThreshold {
			filtered = append(filtered, h)
		}
	}
	if len(filtered) == 0 {
		return ""
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })

	parts := make([]string, 0, len(filtered))
	for _, h := range filtered {
		parts = append(parts, fmt.Sprintf("[Past conversation (relevance: %.2f)]\n%s", h.Score, h.Summary))
	}
	return strings.Join(parts, "\n\n")
}

func formatArchival(r kgclient.QueryResult) string {
	var b strings.Builder

	entities := r.Entities
	if len(entities) > maxArchivalEntities {
		entities = entities[:maxArchivalEntities]
	}
	for _, e := range entities {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", e.Type, e.Name, e.Description)
	}

	relations := r.Relations
	if len(relations) > maxArchivalRelations {
		relations = relations[:maxArchivalRelations]
	}
	for _, rel := range relations {
		fmt.Fprintf(&b, "- %s -> %s: %s\n", rel.Source, rel.Target, rel.Description)
	}

	chunks := r.Chunks
	if len(chunks) > maxArchivalChunks {
		chunks = chunks[:maxArchivalChunks]
	}
	for _, c := range chunks {
		content := c.Content
		if len(content) > archivalChunkChars {
			content = content[:archivalChunkChars] + "…"
		}
		fmt.Fprintf(&b, "- %s\n", content)
	}

	return strings.TrimRight(b.String(), "\n")
}
