package persistence

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"memgate/internal/objectstore"
)

// S3BlobStore adapts an objectstore.ObjectStore (S3 or in-memory) to the
// BlobStore interface, gzip-compressing content the same way
// PostgresBlobStore does so the two backends are interchangeable behind
// BLOB_BACKEND. Document metadata travels in the object's user metadata.
type S3BlobStore struct {
	store objectstore.ObjectStore
}

func NewS3BlobStore(store objectstore.ObjectStore) *S3BlobStore {
	return &S3BlobStore{store: store}
}

func (s *S3BlobStore) key(workspace, id string) string {
	return workspace + "/" + id
}

func (s *S3BlobStore) Put(ctx context.Context, doc Document, content []byte) error {
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

	_, err = s.store.Put(ctx, s.key(doc.Workspace, doc.ID), &buf, objectstore.PutOptions{
		ContentType: doc.ContentType,
		Metadata: map[string]string{
			"file_name":     doc.FileName,
			"original_size": fmt.Sprint(doc.OriginalSize),
			"metadata":      string(metadata),
		},
	})
	return err
}

func (s *S3BlobStore) Get(ctx context.Context, workspace, id string) (Document, []byte, error) {
	r, attrs, err := s.store.Get(ctx, s.key(workspace, id))
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return Document{}, nil, ErrNotFound
		}
		return Document{}, nil, err
	}
	defer r.Close()

	gz, err := gzip.NewReader(r)
	if err != nil {
		return Document{}, nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close()
	content, err := io.ReadAll(gz)
	if err != nil {
		return Document{}, nil, fmt.Errorf("gzip read: %w", err)
	}

	doc := Document{
		ID:             id,
		Workspace:      workspace,
		ContentType:    attrs.ContentType,
		CompressedSize: attrs.Size,
		OriginalSize:   int64(len(content)),
		CreatedAt:      attrs.LastModified,
		FileName:       attrs.Metadata["file_name"],
	}
	if n, err := strconv.ParseInt(attrs.Metadata["original_size"], 10, 64); err == nil {
		doc.OriginalSize = n
	}
	if raw := attrs.Metadata["metadata"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &doc.Metadata)
	}
	return doc, content, nil
}
