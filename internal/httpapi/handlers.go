package httpapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"memgate/internal/apierr"
	"memgate/internal/jobqueue"
	"memgate/internal/llmproxy"
	"memgate/internal/observability"
	"memgate/internal/persistence"
	"memgate/internal/router"
	"memgate/internal/shortterm"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as the OpenAI-style {"error":{...}} body, mapping
// apierr.Kind to both the HTTP status and the "type" field.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := apierr.HTTPStatus(err)
	if status >= 500 {
		observability.LoggerWithTrace(ctx).Error().Err(err).Msg("httpapi: request failed")
	}
	var body errorBody
	body.Error.Message = err.Error()
	body.Error.Type = string(apierr.KindOf(err))
	body.Error.Code = status
	writeJSON(w, status, body)
}

// handleChatCompletions implements POST /v1/chat/completions.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(ctx, w, apierr.New(apierr.BadRequest, "malformed request body", err))
		return
	}
	if body.Model == "" {
		writeError(ctx, w, apierr.New(apierr.BadRequest, "model is required", nil))
		return
	}

	entry, err := s.Router.Resolve(body.Model)
	if err != nil {
		writeError(ctx, w, apierr.New(apierr.BadRequest, fmt.Sprintf("unknown model %q", body.Model), err))
		return
	}

	systemPrompt := firstSystemContent(body.Messages)
	workspace := resolveWorkspace(r, body.Workspace, systemPrompt)

	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if _, err := s.Sessions.EnsureSession(ctx, sessionID, workspace, body.Model); err != nil {
		writeError(ctx, w, apierr.Wrap(apierr.Internal, err))
		return
	}

	s.persistIncoming(ctx, workspace, sessionID, body.Messages)

	augmented := s.Composer.Compose(ctx, workspace, sessionID, body.Messages)
	opts := llmproxy.Options{Temperature: body.Temperature, TopP: body.TopP, MaxTokens: body.MaxTokens}

	w.Header().Set("X-Session-Id", sessionID)

	if body.Stream {
		s.streamChatCompletion(ctx, w, entry, augmented, opts, workspace, sessionID)
		return
	}

	resp, err := s.Proxy.ChatUnary(ctx, entry, augmented, opts)
	if err != nil {
		writeError(ctx, w, apierr.Wrap(apierr.TransientUpstream, err))
		return
	}

	assistant := ""
	if len(resp.Choices) > 0 {
		assistant = resp.Choices[0].Message.Content
	}
	out := chatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   body.Model,
		Choices: resp.Choices,
		Usage:   resp.Usage,
	}
	writeJSON(w, http.StatusOK, out)

	s.persistAssistant(context.WithoutCancel(ctx), workspace, sessionID, assistant)
}

// streamChatCompletion emits the SSE chunk sequence: one role-announcing
// chunk, one per non-empty content delta, then a finish_reason chunk and the
// literal "data: [DONE]" line. Persistence and promotion happen after the
// stream has been fully delivered to the client, on a detached context.
func (s *Server) streamChatCompletion(ctx context.Context, w http.ResponseWriter, entry router.Entry, msgs []llmproxy.Message, opts llmproxy.Options, workspace, sessionID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(ctx, w, apierr.New(apierr.Internal, "streaming unsupported by response writer", nil))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()
	model := entry.Alias

	var collected bytes.Buffer
	first := true
	emit := func(delta llmproxy.StreamDelta) error {
		role := ""
		if first {
			role = "assistant"
			first = false
		}
		var finish *string
		if delta.FinishReason != "" {
			fr := delta.FinishReason
			finish = &fr
		}
		chunk := chatCompletionChunk{
			ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
			Choices: []chatCompletionChunkChoice{{
				Index:        0,
				Delta:        chatCompletionChunkDelta{Role: role, Content: delta.Content},
				FinishReason: finish,
			}},
		}
		collected.WriteString(delta.Content)
		b, err := json.Marshal(chunk)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := s.Proxy.ChatStream(ctx, entry, msgs, opts, emit); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("httpapi: chat stream aborted")
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()

	content := collected.String()
	detached := context.WithoutCancel(ctx)
	s.persistAssistant(detached, workspace, sessionID, content)
}

func firstSystemContent(msgs []llmproxy.Message) string {
	for _, m := range msgs {
		if m.Role == "system" {
			return m.Content
		}
	}
	return ""
}

// persistIncoming appends the request's newest user message to the
// persistent log and the short-term buffer before memory composition runs.
// OpenAI-compatible clients resend the whole growing conversation on every
// call, so only the last non-empty user turn is new; replaying the rest
// would re-persist every previously-seen turn each request.
func (s *Server) persistIncoming(ctx context.Context, workspace, sessionID string, msgs []llmproxy.Message) {
	var last *llmproxy.Message
	for i := range msgs {
		if msgs[i].Role == "user" && msgs[i].Content != "" {
			last = &msgs[i]
		}
	}
	if last == nil {
		return
	}
	if err := s.ShortTerm.Append(ctx, workspace, sessionID, shortterm.Turn{Role: last.Role, Content: last.Content}); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("httpapi: short-term append failed")
	}
	toAppend := []persistence.Message{{SessionID: sessionID, Role: last.Role, Content: last.Content}}
	if err := s.Sessions.AppendMessages(ctx, sessionID, toAppend); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("httpapi: append incoming messages failed")
	}
}

func (s *Server) persistAssistant(ctx context.Context, workspace, sessionID, content string) {
	if err := s.Sessions.AppendMessages(ctx, sessionID, []persistence.Message{{SessionID: sessionID, Role: "assistant", Content: content}}); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("httpapi: append assistant message failed")
	}
	if err := s.ShortTerm.Append(ctx, workspace, sessionID, shortterm.Turn{Role: "assistant", Content: content}); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("httpapi: short-term append failed")
	}

	count, err := s.Sessions.CountMessages(ctx, sessionID)
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("httpapi: count messages failed")
		return
	}
	s.Promoter.MaybePromote(ctx, workspace, sessionID, count)
}

// handleListModels implements GET /v1/models.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	aliases := s.Router.List()
	data := make([]modelInfo, 0, len(aliases))
	for _, a := range aliases {
		data = append(data, modelInfo{ID: a, Object: "model", OwnedBy: "local"})
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data})
}

// handleListSessions implements GET /v1/sessions?workspace=.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspace := workspaceOrDefault(r.URL.Query().Get("workspace"))

	sessions, err := s.Sessions.ListSessions(ctx, workspace)
	if err != nil {
		writeError(ctx, w, apierr.Wrap(apierr.Internal, err))
		return
	}
	out := make([]sessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		count, err := s.Sessions.CountMessages(ctx, sess.ID)
		if err != nil {
			observability.LoggerWithTrace(ctx).Warn().Err(err).Str("session_id", sess.ID).Msg("httpapi: count messages failed")
		}
		out = append(out, sessionInfo{
			ID: sess.ID, Workspace: sess.Workspace, Model: sess.Model,
			CreatedAt: sess.CreatedAt.Format(time.RFC3339), UpdatedAt: sess.UpdatedAt.Format(time.RFC3339),
			HasSummary: sess.Summary != "", MessageCount: count,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// handleDeleteSession implements DELETE /v1/sessions/{sessionID}. Idempotent:
// deleting an id that doesn't exist still returns 204.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspace := workspaceOrDefault(r.URL.Query().Get("workspace"))
	id := r.PathValue("sessionID")

	if err := s.Sessions.DeleteSession(ctx, workspace, id); err != nil {
		writeError(ctx, w, apierr.Wrap(apierr.Internal, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDocumentIngest implements POST /v1/documents/ingest.
func (s *Server) handleDocumentIngest(w http.ResponseWriter, r *http.Request) {
	s.handleIngest(w, r, jobqueue.TypeDocument, s.DocumentTopic)
}

// handleCodebaseIngest implements POST /v1/codebase/ingest.
func (s *Server) handleCodebaseIngest(w http.ResponseWriter, r *http.Request) {
	s.handleIngest(w, r, jobqueue.TypeCodebase, s.CodebaseTopic)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request, jobType, topic string) {
	ctx := r.Context()
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(ctx, w, apierr.New(apierr.BadRequest, "malformed multipart body", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(ctx, w, apierr.New(apierr.BadRequest, "missing file field", err))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(ctx, w, apierr.Wrap(apierr.Internal, err))
		return
	}

	workspace := sanitizeWorkspace(r.FormValue("workspace"))
	if workspace == "" {
		workspace = sanitizeWorkspace(r.Header.Get("X-Workspace"))
	}
	if workspace == "" {
		workspace = defaultWorkspace
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	docID := uuid.NewString()
	doc := persistence.Document{
		ID:           docID,
		Workspace:    workspace,
		FileName:     header.Filename,
		ContentType:  contentType,
		OriginalSize: int64(len(content)),
		Metadata:     map[string]any{},
	}
	if err := s.Blobs.Put(ctx, doc, content); err != nil {
		writeError(ctx, w, apierr.Wrap(apierr.Internal, err))
		return
	}

	jobID := uuid.NewString()
	if err := s.Jobs.Create(ctx, jobID, docID, workspace, jobType); err != nil {
		writeError(ctx, w, apierr.Wrap(apierr.Internal, err))
		return
	}
	if err := s.Producer.Publish(ctx, topic, jobID, jobType); err != nil {
		writeError(ctx, w, apierr.Wrap(apierr.TransientUpstream, err))
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		DocID: docID, JobID: jobID, Workspace: workspace,
		OriginalSize: int64(len(content)), CompressedSize: gzipSize(content),
		Status: persistence.JobQueued,
	})
}

// handleDocumentDownload implements GET /v1/documents/{docID}/download.
func (s *Server) handleDocumentDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspace := workspaceOrDefault(r.URL.Query().Get("workspace"))
	id := r.PathValue("docID")

	doc, content, err := s.Blobs.Get(ctx, workspace, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			writeError(ctx, w, apierr.New(apierr.NotFound, "document not found", err))
			return
		}
		writeError(ctx, w, apierr.Wrap(apierr.Internal, err))
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// handleGetJob implements GET /v1/jobs/{jobID}?workspace=.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspace := workspaceOrDefault(r.URL.Query().Get("workspace"))
	id := r.PathValue("jobID")

	job, err := s.Jobs.Get(ctx, workspace, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			writeError(ctx, w, apierr.New(apierr.NotFound, "job not found", err))
			return
		}
		writeError(ctx, w, apierr.Wrap(apierr.Internal, err))
		return
	}
	writeJSON(w, http.StatusOK, toJobStatusResponse(job))
}

// handleListJobs implements GET /v1/jobs?workspace=&status=&limit=.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspace := workspaceOrDefault(r.URL.Query().Get("workspace"))
	status := r.URL.Query().Get("status")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	jobs, err := s.Jobs.List(ctx, workspace, status, limit)
	if err != nil {
		writeError(ctx, w, apierr.Wrap(apierr.Internal, err))
		return
	}
	out := make([]jobStatusResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobStatusResponse(j))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func toJobStatusResponse(j persistence.Job) jobStatusResponse {
	out := jobStatusResponse{
		ID: j.ID, DocID: j.DocID, Workspace: j.Workspace, JobType: j.JobType,
		Status: j.Status, CreatedAt: j.CreatedAt.Format(time.RFC3339),
		Error: j.Error, Result: j.Result, Attempts: j.Attempts,
	}
	if j.StartedAt != nil {
		v := j.StartedAt.Format(time.RFC3339)
		out.StartedAt = &v
	}
	if j.CompletedAt != nil {
		v := j.CompletedAt.Format(time.RFC3339)
		out.CompletedAt = &v
	}
	return out
}

func workspaceOrDefault(raw string) string {
	if ws := sanitizeWorkspace(raw); ws != "" {
		return ws
	}
	return defaultWorkspace
}

// gzipSize reports the size content would occupy once gzip-compressed, the
// same way PostgresBlobStore.Put compresses it, without requiring BlobStore
// to expose the compressed size itself.
func gzipSize(content []byte) int64 {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write(content)
	_ = gz.Close()
	return int64(buf.Len())
}
