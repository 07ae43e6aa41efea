// Package promote implements the background promoter: after every assistant
// turn it checks the session's message count against the promote/archival
// thresholds and, off the request-critical path, summarizes the session
// and/or pushes its summary into archival memory.
package promote

import (
	"context"
	"fmt"
	"strings"

	"memgate/internal/background"
	"memgate/internal/kgclient"
	"memgate/internal/observability"
	"memgate/internal/persistence"
	"memgate/internal/rag/embedder"
)

const transcriptCharLimit = 12000

const truncationMarker = "\n[... transcript truncated ...]\n"

// VectorStore persists a session's rolling summary and its embedding vector,
// satisfied by both persistence.SessionStore (pgvector) and
// persistence.QdrantRecallStore.
type VectorStore interface {
	UpsertSummary(ctx context.Context, workspace, sessionID, summary string, vector []float32) error
}

// Promoter dispatches summarize_and_store / promote_to_archival onto a
// background.Queue so the chat request path never waits on it.
type Promoter struct {
	Sessions   *persistence.SessionStore
	Vectors    VectorStore
	Embedder   embedder.Embedder
	Summarizer *Summarizer
	KG         *kgclient.Client
	Queue      *background.Queue

	PromoteAfterTurns  int
	ArchivalAfterTurns int
}

// MaybePromote inspects the turn count and, if a threshold was just crossed,
// submits the corresponding background job. It never blocks on the work
// itself; only the count check runs synchronously.
func (p *Promoter) MaybePromote(ctx context.Context, workspace, sessionID string, turnCount int) {
	promoteAfter := p.PromoteAfterTurns
	if promoteAfter <= 0 {
		promoteAfter = 10
	}
	archiveAfter := p.ArchivalAfterTurns
	if archiveAfter <= 0 {
		archiveAfter = 20
	}

	crossedPromote, crossedArchive := thresholdsCrossed(turnCount, promoteAfter, archiveAfter)
	if !crossedPromote && !crossedArchive {
		return
	}

	p.Queue.Submit(func(bgCtx context.Context) {
		log := observability.LoggerWithTrace(bgCtx)
		if crossedPromote {
			if _, err := p.summarizeAndStore(bgCtx, workspace, sessionID); err != nil {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("promote: summarize_and_store failed")
			}
		}
		if crossedArchive {
			if err := p.promoteToArchival(bgCtx, workspace, sessionID); err != nil {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("promote: promote_to_archival failed")
			}
		}
	})
}

// summarizeAndStore builds the transcript, summarizes it, embeds the
// summary, and upserts it onto the session. Returns the summary text (empty
// if the summarizer produced nothing, in which case nothing is stored).
func (p *Promoter) summarizeAndStore(ctx context.Context, workspace, sessionID string) (string, error) {
	count, err := p.Sessions.CountMessages(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("count messages: %w", err)
	}
	messages, err := p.Sessions.RecentMessages(ctx, sessionID, count)
	if err != nil {
		return "", fmt.Errorf("load messages: %w", err)
	}

	transcript := buildTranscript(messages)
	summary, err := p.Summarizer.Summarize(ctx, transcript)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if summary == "" {
		return "", nil
	}

	vectors, err := p.Embedder.EmbedBatch(ctx, []string{summary})
	if err != nil || len(vectors) == 0 {
		return "", fmt.Errorf("embed summary: %w", err)
	}
	if err := p.Vectors.UpsertSummary(ctx, workspace, sessionID, summary, vectors[0]); err != nil {
		return "", fmt.Errorf("upsert summary: %w", err)
	}
	return summary, nil
}

// promoteToArchival reads the session's current summary, summarizing first
// if absent, then wraps and ingests it into the knowledge graph.
func (p *Promoter) promoteToArchival(ctx context.Context, workspace, sessionID string) error {
	sess, err := p.Sessions.GetSession(ctx, workspace, sessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	summary := sess.Summary
	if summary == "" {
		summary, err = p.summarizeAndStore(ctx, workspace, sessionID)
		if err != nil {
			return fmt.Errorf("summarize before archival: %w", err)
		}
		if summary == "" {
			return fmt.Errorf("empty summary, nothing to archive")
		}
	}

	if p.KG == nil {
		return nil
	}
	doc := fmt.Sprintf("Conversation Summary (session: %s, workspace: %s)\n\n%s", sessionID, workspace, summary)
	return p.KG.IngestText(ctx, workspace, doc)
}

// thresholdsCrossed reports whether turnCount just crossed the promote
// and/or archival thresholds (exact multiple, per the spec's "T mod P == 0"
// rule — not merely "at or past").
func thresholdsCrossed(turnCount, promoteAfter, archiveAfter int) (crossedPromote, crossedArchive bool) {
	crossedPromote = turnCount >= promoteAfter && turnCount%promoteAfter == 0
	crossedArchive = turnCount >= archiveAfter && turnCount%archiveAfter == 0
	return
}

func buildTranscript(messages []persistence.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	s := b.String()
	if len(s) > transcriptCharLimit {
		s = s[:transcriptCharLimit] + truncationMarker
	}
	return s
}
