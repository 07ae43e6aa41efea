package ingestworker

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"memgate/internal/persistence"
)

type fakeBlobStore struct {
	doc     persistence.Document
	content []byte
}

func (f *fakeBlobStore) Put(ctx context.Context, doc persistence.Document, content []byte) error {
	f.doc, f.content = doc, content
	return nil
}

func (f *fakeBlobStore) Get(ctx context.Context, workspace, id string) (persistence.Document, []byte, error) {
	return f.doc, f.content, nil
}

func newPreprocessorStub(t *testing.T, onRequest func(r *http.Request) SendResult) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ingest", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Workspace"))
		require.NoError(t, r.ParseMultipartForm(10<<20))
		result := onRequest(r)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}))
}

func TestHandleDocumentSendsOriginalAndRecoveredBlocks(t *testing.T) {
	body := "See this helper:\n```go\npackage main\n\nfunc Greet() string { return \"hi\" }\n```\n"
	blobs := &fakeBlobStore{
		doc:     persistence.Document{FileName: "notes.md"},
		content: []byte(body),
	}

	var gotFiles []string
	srv := newPreprocessorStub(t, func(r *http.Request) SendResult {
		for _, fhs := range r.MultipartForm.File["files"] {
			gotFiles = append(gotFiles, fhs.Filename)
		}
		return SendResult{DocumentsSent: len(r.MultipartForm.File["files"])}
	})
	defer srv.Close()

	h := &Handler{Blobs: blobs, Preprocessor: NewPreprocessorClient(srv.URL, nil), BatchSize: 20}
	result, err := h.HandleDocument(context.Background(), persistence.Job{Workspace: "acme", DocID: "d1"})
	require.NoError(t, err)
	require.Equal(t, 2, result["documents_sent"])
	require.Contains(t, gotFiles, "notes.md")
	require.Contains(t, gotFiles, "notes:block_0.go")
}

func TestHandleDocumentNoRecoverableBlocks(t *testing.T) {
	blobs := &fakeBlobStore{doc: persistence.Document{FileName: "plain.txt"}, content: []byte("just prose, nothing fenced")}

	srv := newPreprocessorStub(t, func(r *http.Request) SendResult {
		return SendResult{DocumentsSent: len(r.MultipartForm.File["files"])}
	})
	defer srv.Close()

	h := &Handler{Blobs: blobs, Preprocessor: NewPreprocessorClient(srv.URL, nil), BatchSize: 20}
	result, err := h.HandleDocument(context.Background(), persistence.Job{Workspace: "acme", DocID: "d1"})
	require.NoError(t, err)
	require.Equal(t, 1, result["documents_sent"])
}

func TestHandleCodebaseParsesArchiveMembersAndBatches(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range []struct{ name, content string }{
		{"pkg/a.go", "package pkg\n\nfunc A() {}\n"},
		{"pkg/b.py", "def b():\n    pass\n"},
		{"README.md", "# not source, skipped"},
	} {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	blobs := &fakeBlobStore{doc: persistence.Document{FileName: "repo.zip"}, content: buf.Bytes()}

	var gotFiles []string
	srv := newPreprocessorStub(t, func(r *http.Request) SendResult {
		for _, fhs := range r.MultipartForm.File["files"] {
			gotFiles = append(gotFiles, fhs.Filename)
		}
		return SendResult{DocumentsSent: len(r.MultipartForm.File["files"])}
	})
	defer srv.Close()

	h := &Handler{Blobs: blobs, Preprocessor: NewPreprocessorClient(srv.URL, nil), BatchSize: 20}
	result, err := h.HandleCodebase(context.Background(), persistence.Job{Workspace: "acme", DocID: "d2"})
	require.NoError(t, err)
	require.Equal(t, 2, result["documents_sent"])
	require.Contains(t, gotFiles, "pkg/a.go")
	require.Contains(t, gotFiles, "pkg/b.py")
	require.NotContains(t, gotFiles, "README.md")
}

func TestHandleCodebaseEmptyArchiveFails(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	require.NoError(t, zw.Close())

	blobs := &fakeBlobStore{doc: persistence.Document{FileName: "empty.zip"}, content: buf.Bytes()}
	h := &Handler{Blobs: blobs, Preprocessor: NewPreprocessorClient("http://unused", nil)}
	_, err := h.HandleCodebase(context.Background(), persistence.Job{Workspace: "acme", DocID: "d3"})
	require.Error(t, err)
}

func TestSendBatchesRespectsBatchSize(t *testing.T) {
	var batchSizes []int
	srv := newPreprocessorStub(t, func(r *http.Request) SendResult {
		batchSizes = append(batchSizes, len(r.MultipartForm.File["files"]))
		return SendResult{DocumentsSent: len(r.MultipartForm.File["files"])}
	})
	defer srv.Close()

	h := &Handler{Preprocessor: NewPreprocessorClient(srv.URL, nil), BatchSize: 2}
	files := []File{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	result, err := h.sendBatches(context.Background(), "acme", files)
	require.NoError(t, err)
	require.Equal(t, 3, result["documents_sent"])
	require.Equal(t, []int{2, 1}, batchSizes)
}
