package promote

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"memgate/internal/persistence"
)

func TestThresholdsCrossedAtExactMultiples(t *testing.T) {
	promote, archive := thresholdsCrossed(10, 10, 20)
	require.True(t, promote)
	require.False(t, archive)

	promote, archive = thresholdsCrossed(20, 10, 20)
	require.True(t, promote)
	require.True(t, archive)

	promote, archive = thresholdsCrossed(15, 10, 20)
	require.False(t, promote)
	require.False(t, archive)
}

func TestThresholdsCrossedBelowFirstMultiple(t *testing.T) {
	promote, archive := thresholdsCrossed(5, 10, 20)
	require.False(t, promote)
	require.False(t, archive)
}

func TestBuildTranscriptFormatsRolePrefixedLines(t *testing.T) {
	messages := []persistence.Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
	}
	transcript := buildTranscript(messages)
	require.Equal(t, "user: hello\nassistant: hi there\n", transcript)
}

func TestBuildTranscriptTruncatesOverLimit(t *testing.T) {
	huge := strings.Repeat("x", transcriptCharLimit+500)
	messages := []persistence.Message{{Role: "user", Content: huge}}
	transcript := buildTranscript(messages)
	require.True(t, len(transcript) < len(huge))
	require.Contains(t, transcript, truncationMarker)
}
