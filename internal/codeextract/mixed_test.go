package codeextract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractBlocksFencedWithLanguageTag(t *testing.T) {
	body := "Here is an example:\n\n```python\ndef greet():\n    return 'hi'\n```\n\nThat's it."
	blocks := ExtractBlocks(body)
	require.Len(t, blocks, 1)
	require.Equal(t, "python", blocks[0].Language)
	require.Contains(t, blocks[0].Content, "def greet")
}

func TestExtractBlocksDropsShortFencedBlocks(t *testing.T) {
	body := "```go\nx\n```"
	blocks := ExtractBlocks(body)
	require.Empty(t, blocks)
}

func TestExtractBlocksFencedUnknownTagFallsBackToContentHeuristic(t *testing.T) {
	body := "```weirdlang\nfunc main() {\n\tfmt.Println(\"hi\")\n}\npackage main\n```"
	blocks := ExtractBlocks(body)
	require.Len(t, blocks, 1)
	require.Equal(t, "go", blocks[0].Language)
}

func TestExtractBlocksHeuristicFallbackWithoutFences(t *testing.T) {
	body := "Some prose describing a function.\n\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n\nMore prose."
	blocks := ExtractBlocks(body)
	require.Len(t, blocks, 1)
	require.Contains(t, blocks[0].Content, "func main()")
}

func TestExtractBlocksHeuristicRequiresBrace(t *testing.T) {
	body := "import os\n\nSome prose without any brace at all that keeps going on for a while."
	blocks := ExtractBlocks(body)
	require.Empty(t, blocks)
}
