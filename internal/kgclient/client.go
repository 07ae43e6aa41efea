// Package kgclient talks to the external knowledge-graph store that backs
// the archival memory tier: querying it during chat (C8) and ingesting
// session summaries into it during promotion (C9).
package kgclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"memgate/internal/apierr"
)

const workspaceHeader = "LIGHTRAG-WORKSPACE"

// Mode selects the KG store's query strategy.
type Mode string

const (
	ModeHybrid Mode = "hybrid"
	ModeLocal  Mode = "local"
	ModeGlobal Mode = "global"
	ModeNaive  Mode = "naive"
)

// Entity is one node returned by a KG query.
type Entity struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Relation is one edge returned by a KG query.
type Relation struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Description string `json:"description"`
}

// Chunk is a raw text passage returned by a KG query.
type Chunk struct {
	Content string `json:"content"`
}

// QueryResult is the archival-memory material for one query.
type QueryResult struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
	Chunks    []Chunk    `json:"chunks"`
}

type queryRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
}

type queryResponse struct {
	Data QueryResult `json:"data"`
}

type ingestRequest struct {
	Text string `json:"text"`
}

// Client is an HTTP client for the knowledge-graph store's query and ingest
// endpoints, scoped per call by workspace via the LIGHTRAG-WORKSPACE header.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a Client. httpClient should be the process-wide
// otelhttp-instrumented client; a per-call timeout is still applied via
// context since KG query and ingest have different deadlines (15s vs 300s).
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// Query issues POST /query/data for the given workspace and mode.
func (c *Client) Query(ctx context.Context, workspace, query string, mode Mode) (QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	body, err := json.Marshal(queryRequest{Query: query, Mode: string(mode)})
	if err != nil {
		return QueryResult{}, apierr.Wrap(apierr.Internal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query/data", bytes.NewReader(body))
	if err != nil {
		return QueryResult{}, apierr.Wrap(apierr.Internal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(workspaceHeader, workspace)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return QueryResult{}, apierr.Wrap(apierr.TransientUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return QueryResult{}, apierr.New(apierr.TransientUpstream, fmt.Sprintf("kg query: status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return QueryResult{}, apierr.New(apierr.PermanentUpstream, fmt.Sprintf("kg query: status %d", resp.StatusCode), nil)
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return QueryResult{}, apierr.Wrap(apierr.TransientUpstream, err)
	}
	return out.Data, nil
}

// IngestText pushes a promoted summary or extracted document into the KG
// store via POST /documents/text.
func (c *Client) IngestText(ctx context.Context, workspace, text string) error {
	ctx, cancel := context.WithTimeout(ctx, 300*time.Second)
	defer cancel()

	body, err := json.Marshal(ingestRequest{Text: text})
	if err != nil {
		return apierr.Wrap(apierr.Internal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents/text", bytes.NewReader(body))
	if err != nil {
		return apierr.Wrap(apierr.Internal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(workspaceHeader, workspace)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierr.Wrap(apierr.TransientUpstream, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return apierr.New(apierr.TransientUpstream, fmt.Sprintf("kg ingest: status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return apierr.New(apierr.PermanentUpstream, fmt.Sprintf("kg ingest: status %d", resp.StatusCode), nil)
	}
	return nil
}
