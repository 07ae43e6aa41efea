package codeextract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const pythonSample = `import os
from collections import namedtuple

class Widget:
    """A widget."""

    def greet(self):
        """Say hi."""
        return "hi"

def make_widget():
    return Widget()
`

func TestParseTreeSitterPythonClassAndMethod(t *testing.T) {
	result := ParseFile("widget.py", pythonSample, "python")

	byName := map[string]Entity{}
	for _, e := range result.Entities {
		byName[e.Name] = e
	}
	widget, ok := byName["Widget"]
	require.True(t, ok)
	require.Equal(t, "class", widget.Kind)
	require.Equal(t, "A widget.", widget.Docstring)

	greet, ok := byName["Widget.greet"]
	require.True(t, ok)
	require.Equal(t, "method", greet.Kind)
	require.Equal(t, "Say hi.", greet.Docstring)

	_, ok = byName["make_widget"]
	require.True(t, ok)

	var importTargets []string
	for _, r := range result.Relations {
		if r.Kind == "imports" {
			importTargets = append(importTargets, r.To)
		}
	}
	require.Contains(t, importTargets, "os")
	require.Contains(t, importTargets, "collections")
}

const jsSample = `import { readFile } from 'fs';

class Widget extends Base {
  greet() {
    return "hi";
  }
}

function makeWidget() {
  return new Widget();
}
`

func TestParseTreeSitterJavaScriptClassExtendsAndMethod(t *testing.T) {
	result := ParseFile("widget.js", jsSample, "javascript")

	var sawExtends bool
	var sawMethodContains bool
	for _, r := range result.Relations {
		if r.Kind == "extends" && r.From == "Widget" && r.To == "Base" {
			sawExtends = true
		}
		if r.Kind == "contains" && r.From == "Widget" && r.To == "Widget.greet" {
			sawMethodContains = true
		}
	}
	require.True(t, sawExtends)
	require.True(t, sawMethodContains)
}

func TestParseTreeSitterUnknownLanguageYieldsModuleOnly(t *testing.T) {
	result := ParseFile("foo.bar", "whatever content", "cobol")
	require.Len(t, result.Entities, 1)
	require.Equal(t, "module", result.Entities[0].Kind)
}
