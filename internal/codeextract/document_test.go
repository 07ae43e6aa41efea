package codeextract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDocumentFromGoSample(t *testing.T) {
	result := ParseFile("widget.go", goSample, "go")
	doc := BuildDocument(result)

	require.Contains(t, doc, "Module: widget.go")
	require.Contains(t, doc, "Imports:")
	require.Contains(t, doc, "- fmt")
	require.Contains(t, doc, "Class Widget")
	require.Contains(t, doc, "method Widget.Greet")
	require.Contains(t, doc, "Functions:")
	require.Contains(t, doc, "- NewWidget")
}
