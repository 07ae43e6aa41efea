package shortterm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyIsWorkspaceScoped(t *testing.T) {
	require.Equal(t, "shortterm:acme:sess-1", key("acme", "sess-1"))
	require.NotEqual(t, key("acme", "sess-1"), key("other", "sess-1"))
}
