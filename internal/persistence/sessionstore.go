package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Session is a chat session row scoped to a workspace.
type Session struct {
	ID        string
	Workspace string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Summary   string
}

// Message is a single turn persisted for a session.
type Message struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// RecallHit is a session summary retrieved by cosine similarity, excluding
// the current session.
type RecallHit struct {
	SessionID string
	Summary   string
	Score     float64
}

// RecallStore is the recall-memory vector search surface shared by
// SessionStore's pgvector implementation and QdrantRecallStore, selected at
// startup by RECALL_VECTOR_BACKEND.
type RecallStore interface {
	SearchRecall(ctx context.Context, workspace, excludeSessionID string, vector []float32, k int) ([]RecallHit, error)
}

// SessionStore persists sessions, their turn history, and the summary
// vectors used for cross-session recall search.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

func (s *SessionStore) EnsureSession(ctx context.Context, id, workspace, model string) (Session, error) {
	row := s.pool.QueryRow(ctx, `
WITH ins AS (
    INSERT INTO orchestrator_sessions (id, workspace, model)
    VALUES ($1, $2, $3)
    ON CONFLICT (id) DO NOTHING
    RETURNING id, workspace, model, created_at, updated_at, summary
)
SELECT id, workspace, model, created_at, updated_at, summary FROM ins
UNION ALL
SELECT id, workspace, model, created_at, updated_at, summary
FROM orchestrator_sessions WHERE id = $1
LIMIT 1`, id, workspace, model)
	return scanSession(row)
}

func (s *SessionStore) GetSession(ctx context.Context, workspace, id string) (Session, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, workspace, model, created_at, updated_at, summary
FROM orchestrator_sessions WHERE id = $1 AND workspace = $2`, id, workspace)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return sess, err
}

func (s *SessionStore) ListSessions(ctx context.Context, workspace string) ([]Session, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, workspace, model, created_at, updated_at, summary
FROM orchestrator_sessions WHERE workspace = $1
ORDER BY updated_at DESC`, workspace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and its messages (ON DELETE CASCADE).
// Idempotent: deleting a missing id is not an error.
func (s *SessionStore) DeleteSession(ctx context.Context, workspace, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM orchestrator_sessions WHERE id = $1 AND workspace = $2`, id, workspace)
	return err
}

func (s *SessionStore) AppendMessages(ctx context.Context, sessionID string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, m := range messages {
		if _, err := tx.Exec(ctx, `
INSERT INTO orchestrator_messages (session_id, role, content) VALUES ($1, $2, $3)`,
			sessionID, m.Role, m.Content); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE orchestrator_sessions SET updated_at = now() WHERE id = $1`, sessionID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *SessionStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, session_id, role, content, created_at FROM (
    SELECT id, session_id, role, content, created_at
    FROM orchestrator_messages
    WHERE session_id = $1
    ORDER BY id DESC
    LIMIT $2
) sub ORDER BY id ASC`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SessionStore) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM orchestrator_messages WHERE session_id = $1`, sessionID).Scan(&n)
	return n, err
}

// UpdateSummary stores the rolling summary and its embedding for recall search.
func (s *SessionStore) UpdateSummary(ctx context.Context, sessionID, summary string, vector []float32) error {
	_, err := s.pool.Exec(ctx, `
UPDATE orchestrator_sessions
SET summary = $2, summary_vector = $3::vector, updated_at = now()
WHERE id = $1`, sessionID, summary, toVectorLiteral(vector))
	return err
}

// UpsertSummary stores the rolling summary and vector, ignoring workspace
// (the session id is already workspace-scoped). It matches
// QdrantRecallStore.UpsertSummary's signature so the promoter can treat
// either vector backend interchangeably.
func (s *SessionStore) UpsertSummary(ctx context.Context, workspace, sessionID, summary string, vector []float32) error {
	return s.UpdateSummary(ctx, sessionID, summary, vector)
}

// SearchRecall finds the top-k most similar session summaries in the same
// workspace, excluding the current session, using pgvector cosine distance.
func (s *SessionStore) SearchRecall(ctx context.Context, workspace, excludeSessionID string, vector []float32, k int) ([]RecallHit, error) {
	if k <= 0 {
		k = 3
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, summary, 1 - (summary_vector <=> $1::vector) AS score
FROM orchestrator_sessions
WHERE workspace = $2 AND id != $3 AND summary_vector IS NOT NULL
ORDER BY summary_vector <=> $1::vector
LIMIT $4`, toVectorLiteral(vector), workspace, excludeSessionID, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RecallHit, 0, k)
	for rows.Next() {
		var h RecallHit
		if err := rows.Scan(&h.SessionID, &h.Summary, &h.Score); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	if err := row.Scan(&s.ID, &s.Workspace, &s.Model, &s.CreatedAt, &s.UpdatedAt, &s.Summary); err != nil {
		return Session{}, err
	}
	return s, nil
}

// toVectorLiteral renders a float32 vector as a pgvector literal, e.g. "[0.1,0.2]".
func toVectorLiteral(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", x)
	}
	b.WriteByte(']')
	return b.String()
}
