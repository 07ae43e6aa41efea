package kgclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"memgate/internal/apierr"
)

func TestQuerySendsWorkspaceHeaderAndParsesData(t *testing.T) {
	var gotWorkspace, gotMode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWorkspace = r.Header.Get(workspaceHeader)
		var req queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotMode = req.Mode
		_ = json.NewEncoder(w).Encode(queryResponse{Data: QueryResult{
			Entities: []Entity{{Name: "foo", Type: "module"}},
		}})
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	result, err := c.Query(context.Background(), "acme", "what is foo", ModeHybrid)
	require.NoError(t, err)
	require.Equal(t, "acme", gotWorkspace)
	require.Equal(t, "hybrid", gotMode)
	require.Len(t, result.Entities, 1)
	require.Equal(t, "foo", result.Entities[0].Name)
}

func TestQueryUpstream5xxIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	_, err := c.Query(context.Background(), "acme", "q", ModeHybrid)
	require.Error(t, err)
	require.True(t, apierr.IsTransient(err))
}

func TestIngestTextSendsWorkspaceHeader(t *testing.T) {
	var gotWorkspace string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWorkspace = r.Header.Get(workspaceHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	err := c.IngestText(context.Background(), "acme", "conversation summary")
	require.NoError(t, err)
	require.Equal(t, "acme", gotWorkspace)
}
