// Package httpapi implements the gateway's external HTTP surface: the
// OpenAI-compatible chat-completion endpoint, model listing, session
// lifecycle, document/codebase ingest, and job status.
package httpapi

import (
	"net/http"

	"memgate/internal/jobqueue"
	"memgate/internal/llmproxy"
	"memgate/internal/memory"
	"memgate/internal/persistence"
	"memgate/internal/promote"
	"memgate/internal/router"
	"memgate/internal/shortterm"
)

// Server wires the memory-augmented chat gateway and ingest-accept endpoints
// onto a single mux.
type Server struct {
	Router    *router.Router
	Proxy     *llmproxy.Proxy
	Composer  *memory.Composer
	Promoter  *promote.Promoter
	Sessions  *persistence.SessionStore
	ShortTerm *shortterm.Buffer
	Blobs     persistence.BlobStore
	Jobs      *persistence.JobStore
	Producer  *jobqueue.Producer

	DocumentTopic string
	CodebaseTopic string

	mux *http.ServeMux
}

// NewServer registers routes on s and returns it ready to serve.
func NewServer(s *Server) *Server {
	s.mux = http.NewServeMux()
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	s.mux.HandleFunc("GET /v1/models", s.handleListModels)

	s.mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	s.mux.HandleFunc("DELETE /v1/sessions/{sessionID}", s.handleDeleteSession)

	s.mux.HandleFunc("POST /v1/documents/ingest", s.handleDocumentIngest)
	s.mux.HandleFunc("POST /v1/codebase/ingest", s.handleCodebaseIngest)
	s.mux.HandleFunc("GET /v1/documents/{docID}/download", s.handleDocumentDownload)

	s.mux.HandleFunc("GET /v1/jobs/{jobID}", s.handleGetJob)
	s.mux.HandleFunc("GET /v1/jobs", s.handleListJobs)
}
