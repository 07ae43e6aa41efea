package httpapi

import (
	"net/http"
	"regexp"
)

const defaultWorkspace = "default"

// workspaceFromPrompt recognizes "workspace: foo" or "project=foo" inside a
// system prompt, the last-resort source in the precedence chain below.
var workspaceFromPrompt = regexp.MustCompile(`(?i)(workspace|project)\s*[:=]\s*["']?(\S+)`)

// workspaceSanitize restricts a candidate workspace tag to its valid prefix.
var workspaceSanitize = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}`)

// resolveWorkspace implements the precedence chain: body.workspace > header >
// parsed from the system prompt > "default".
func resolveWorkspace(r *http.Request, bodyWorkspace, systemPrompt string) string {
	if ws := sanitizeWorkspace(bodyWorkspace); ws != "" {
		return ws
	}
	if ws := sanitizeWorkspace(r.Header.Get("X-Workspace")); ws != "" {
		return ws
	}
	if m := workspaceFromPrompt.FindStringSubmatch(systemPrompt); m != nil {
		if ws := sanitizeWorkspace(m[2]); ws != "" {
			return ws
		}
	}
	return defaultWorkspace
}

func sanitizeWorkspace(raw string) string {
	return workspaceSanitize.FindString(raw)
}
