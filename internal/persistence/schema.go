package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema applies the gateway's DDL idempotently. It is safe to call on
// every process startup, mirroring the teacher's store-level Init(ctx)
// convention rather than a separate migration tool.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, vectorDim int) error {
	if vectorDim <= 0 {
		vectorDim = 1024
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS orchestrator_sessions (
    id              TEXT PRIMARY KEY,
    workspace       TEXT NOT NULL,
    model           TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    summary         TEXT,
    summary_vector  vector(%d)
)`, vectorDim),
		`CREATE INDEX IF NOT EXISTS idx_sessions_workspace ON orchestrator_sessions (workspace)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_summary_vector ON orchestrator_sessions
    USING hnsw (summary_vector vector_cosine_ops)`,

		`CREATE TABLE IF NOT EXISTS orchestrator_messages (
    id          BIGSERIAL PRIMARY KEY,
    session_id  TEXT NOT NULL REFERENCES orchestrator_sessions(id) ON DELETE CASCADE,
    role        TEXT NOT NULL,
    content     TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON orchestrator_messages (session_id, id)`,

		`CREATE TABLE IF NOT EXISTS orchestrator_documents (
    id              TEXT PRIMARY KEY,
    workspace       TEXT NOT NULL,
    file_name       TEXT NOT NULL,
    content_type    TEXT NOT NULL,
    compressed_blob BYTEA NOT NULL,
    original_size   BIGINT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    metadata        JSONB NOT NULL DEFAULT '{}'::jsonb
)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_workspace ON orchestrator_documents (workspace)`,

		`CREATE TABLE IF NOT EXISTS orchestrator_ingest_jobs (
    id              TEXT PRIMARY KEY,
    doc_id          TEXT NOT NULL REFERENCES orchestrator_documents(id),
    workspace       TEXT NOT NULL,
    job_type        TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'queued',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    started_at      TIMESTAMPTZ,
    completed_at    TIMESTAMPTZ,
    error           TEXT,
    result          JSONB,
    attempts        INT NOT NULL DEFAULT 0
)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON orchestrator_ingest_jobs (status)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_workspace ON orchestrator_ingest_jobs (workspace)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_doc ON orchestrator_ingest_jobs (doc_id)`,
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
