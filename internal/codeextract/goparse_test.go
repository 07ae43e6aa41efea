package codeextract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const goSample = `package widgets

import (
	"fmt"
	"strings"
)

// Widget is a thing.
type Widget struct {
	Name string
}

// Greet prints a greeting.
func (w *Widget) Greet() string {
	return fmt.Sprintf("hi %s", w.Name)
}

func NewWidget(name string) *Widget {
	return &Widget{Name: strings.TrimSpace(name)}
}
`

func TestParseGoExtractsTypeMethodAndFunction(t *testing.T) {
	result := ParseFile("widget.go", goSample, "go")

	var kinds []string
	names := map[string]Entity{}
	for _, e := range result.Entities {
		kinds = append(kinds, e.Kind)
		names[e.Name] = e
	}
	require.Contains(t, kinds, "module")
	require.Contains(t, kinds, "class")
	require.Contains(t, kinds, "method")
	require.Contains(t, kinds, "function")

	widget, ok := names["Widget"]
	require.True(t, ok)
	require.Equal(t, "Widget is a thing.", widget.Docstring)

	greet, ok := names["Widget.Greet"]
	require.True(t, ok)
	require.Equal(t, "Greet prints a greeting.", greet.Docstring)

	_, ok = names["NewWidget"]
	require.True(t, ok)
}

func TestParseGoImportsAndContainsRelations(t *testing.T) {
	result := ParseFile("widget.go", goSample, "go")

	var importTargets []string
	containsEdges := map[string]bool{}
	for _, r := range result.Relations {
		if r.Kind == "imports" {
			importTargets = append(importTargets, r.To)
		}
		if r.Kind == "contains" {
			containsEdges[r.From+"->"+r.To] = true
		}
	}
	require.Contains(t, importTargets, "fmt")
	require.Contains(t, importTargets, "strings")
	require.True(t, containsEdges["widget.go->Widget"])
	require.True(t, containsEdges["Widget->Widget.Greet"])
	require.True(t, containsEdges["widget.go->NewWidget"])
}

func TestParseGoMalformedSourceYieldsModuleOnly(t *testing.T) {
	result := ParseFile("broken.go", "this is not { valid go (", "go")
	require.Len(t, result.Entities, 1)
	require.Equal(t, "module", result.Entities[0].Kind)
}
