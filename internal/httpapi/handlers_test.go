package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"memgate/internal/llmproxy"
	"memgate/internal/persistence"
)

func TestResolveWorkspacePrefersBodyOverHeaderOverPrompt(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	r.Header.Set("X-Workspace", "from-header")
	require.Equal(t, "from-body", resolveWorkspace(r, "from-body", "workspace: from-prompt"))
}

func TestResolveWorkspaceFallsBackToHeader(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	r.Header.Set("X-Workspace", "from-header")
	require.Equal(t, "from-header", resolveWorkspace(r, "", "workspace: from-prompt"))
}

func TestResolveWorkspaceFallsBackToSystemPromptRegex(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	require.Equal(t, "acme-corp", resolveWorkspace(r, "", `You are a helpful assistant. project="acme-corp"`))
}

func TestResolveWorkspaceDefaultsWhenNothingMatches(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	require.Equal(t, defaultWorkspace, resolveWorkspace(r, "", "no hints here"))
}

func TestSanitizeWorkspaceTruncatesInvalidSuffix(t *testing.T) {
	require.Equal(t, "acme-1_2", sanitizeWorkspace("acme-1_2!!notallowed"))
}

func TestSanitizeWorkspaceEmptyForFullyInvalidInput(t *testing.T) {
	require.Equal(t, "", sanitizeWorkspace("!!!"))
}

func TestWorkspaceOrDefault(t *testing.T) {
	require.Equal(t, defaultWorkspace, workspaceOrDefault(""))
	require.Equal(t, "tenant-a", workspaceOrDefault("tenant-a"))
}

func TestFirstSystemContentReturnsFirstSystemMessage(t *testing.T) {
	msgs := []llmproxy.Message{
		{Role: "user", Content: "hi"},
		{Role: "system", Content: "be terse"},
		{Role: "system", Content: "ignored second system message"},
	}
	require.Equal(t, "be terse", firstSystemContent(msgs))
}

func TestFirstSystemContentEmptyWhenNonePresent(t *testing.T) {
	msgs := []llmproxy.Message{{Role: "user", Content: "hi"}}
	require.Equal(t, "", firstSystemContent(msgs))
}

func TestGzipSizeSmallerThanInput(t *testing.T) {
	data := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.Less(t, gzipSize(data), int64(len(data)))
}

func TestToJobStatusResponseMapsOptionalTimestamps(t *testing.T) {
	job := persistence.Job{ID: "j1", DocID: "d1", Workspace: "ws", JobType: "document", Status: "completed", Attempts: 2}
	out := toJobStatusResponse(job)
	require.Equal(t, "j1", out.ID)
	require.Nil(t, out.StartedAt)
	require.Nil(t, out.CompletedAt)
}
