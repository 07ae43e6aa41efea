package persistence

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Document describes a stored blob's metadata, independent of where its
// bytes live (Postgres bytea or an S3-compatible bucket).
type Document struct {
	ID             string
	Workspace      string
	FileName       string
	ContentType    string
	OriginalSize   int64
	CompressedSize int64
	CreatedAt      time.Time
	Metadata       map[string]any
}

// BlobStore stores and retrieves gzip-compressed document bytes. Two
// implementations exist: PostgresBlobStore (default) and an S3-backed one in
// internal/objectstore, selected at startup by BLOB_BACKEND.
type BlobStore interface {
	Put(ctx context.Context, doc Document, content []byte) error
	Get(ctx context.Context, workspace, id string) (Document, []byte, error)
}

// PostgresBlobStore stores gzip-compressed bytes directly in the
// orchestrator_documents.compressed_blob column.
type PostgresBlobStore struct {
	pool *pgxpool.Pool
}

func NewPostgresBlobStore(pool *pgxpool.Pool) *PostgresBlobStore {
	return &PostgresBlobStore{pool: pool}
}

func (b *PostgresBlobStore) Put(ctx context.Context, doc Document, content []byte) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(content); err != nil {
		return fmt.Errorf("gzip write: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = b.pool.Exec(ctx, `
INSERT INTO orchestrator_documents (id, workspace, file_name, content_type, compressed_blob, original_size, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    compressed_blob = EXCLUDED.compressed_blob,
    original_size = EXCLUDED.original_size,
    metadata = EXCLUDED.metadata`,
		doc.ID, doc.Workspace, doc.FileName, doc.ContentType, buf.Bytes(), doc.OriginalSize, metadata)
	return err
}

func (b *PostgresBlobStore) Get(ctx context.Context, workspace, id string) (Document, []byte, error) {
	var doc Document
	var blob []byte
	var metadataRaw []byte
	row := b.pool.QueryRow(ctx, `
SELECT id, workspace, file_name, content_type, compressed_blob, original_size, created_at, metadata
FROM orchestrator_documents WHERE id = $1 AND workspace = $2`, id, workspace)
	if err := row.Scan(&doc.ID, &doc.Workspace, &doc.FileName, &doc.ContentType, &blob, &doc.OriginalSize, &doc.CreatedAt, &metadataRaw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, nil, ErrNotFound
		}
		return Document{}, nil, err
	}
	if len(metadataRaw) > 0 {
		_ = json.Unmarshal(metadataRaw, &doc.Metadata)
	}
	doc.CompressedSize = int64(len(blob))

	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return Document{}, nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close()
	content, err := io.ReadAll(gz)
	if err != nil {
		return Document{}, nil, fmt.Errorf("gzip read: %w", err)
	}
	return doc, content, nil
}
