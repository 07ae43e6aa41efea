// Package ingestworker implements the C11 ingest worker's job-type
// dispatch: fetching a job's blob, turning it into preprocessor-ready
// documents (directly for plain documents, through the archive unpacker and
// code extractor for codebases), and forwarding them to the external
// preprocessor service.
package ingestworker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"memgate/internal/apierr"
)

// File is one multipart entry sent to the preprocessor: a file name and its
// raw bytes.
type File struct {
	Name    string
	Content []byte
}

// SendResult mirrors the preprocessor's POST /ingest response body.
type SendResult struct {
	DocumentsSent int      `json:"documents_sent"`
	Errors        []string `json:"errors"`
}

// PreprocessorClient forwards extracted documents to the external
// preprocessor over a multipart POST, the same way kgclient.Client scopes
// calls to a workspace via a request header.
type PreprocessorClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPreprocessorClient constructs a client against the preprocessor's base
// URL. httpClient should be the process-wide otelhttp-instrumented client.
func NewPreprocessorClient(baseURL string, httpClient *http.Client) *PreprocessorClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PreprocessorClient{baseURL: baseURL, httpClient: httpClient}
}

// Send POSTs files as a multipart "files" field list to /ingest, scoped by
// the X-Workspace header.
func (c *PreprocessorClient) Send(ctx context.Context, workspace string, files []File) (SendResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return SendResult{}, apierr.Wrap(apierr.Internal, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return SendResult{}, apierr.Wrap(apierr.Internal, err)
		}
	}
	if err := w.Close(); err != nil {
		return SendResult{}, apierr.Wrap(apierr.Internal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ingest", &body)
	if err != nil {
		return SendResult{}, apierr.Wrap(apierr.Internal, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Workspace", workspace)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SendResult{}, apierr.Wrap(apierr.TransientUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return SendResult{}, apierr.New(apierr.TransientUpstream, fmt.Sprintf("preprocessor: status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return SendResult{}, apierr.New(apierr.PermanentUpstream, fmt.Sprintf("preprocessor: status %d", resp.StatusCode), nil)
	}

	var out SendResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SendResult{}, apierr.Wrap(apierr.TransientUpstream, err)
	}
	return out, nil
}
