package codeextract

import (
	"fmt"
	"strings"
)

// BuildDocument renders a ParseResult as the natural-language summary fed to
// the preprocessor: a module header, its imports, classes/interfaces with
// their methods, then top-level functions.
func BuildDocument(result ParseResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Module: %s\n", result.Path)

	var imports []string
	containsByParent := map[string][]string{}
	for _, r := range result.Relations {
		switch r.Kind {
		case "imports":
			imports = append(imports, r.To)
		case "contains":
			containsByParent[r.From] = append(containsByParent[r.From], r.To)
		}
	}

	if len(imports) > 0 {
		b.WriteString("\nImports:\n")
		for _, imp := range imports {
			fmt.Fprintf(&b, "- %s\n", imp)
		}
	}

	byName := map[string]Entity{}
	for _, e := range result.Entities {
		byName[e.Name] = e
	}

	var topFuncs []Entity
	for _, e := range result.Entities {
		switch e.Kind {
		case "class", "interface":
			b.WriteString("\n" + capitalize(e.Kind) + " " + e.Name)
			if e.Docstring != "" {
				fmt.Fprintf(&b, ": %s", e.Docstring)
			}
			b.WriteString("\n")
			for _, childName := range containsByParent[e.Name] {
				child, ok := byName[childName]
				if !ok || child.Kind != "method" {
					continue
				}
				fmt.Fprintf(&b, "  - method %s", child.Name)
				if child.Docstring != "" {
					fmt.Fprintf(&b, ": %s", child.Docstring)
				}
				b.WriteString("\n")
			}
		case "function":
			topFuncs = append(topFuncs, e)
		}
	}

	if len(topFuncs) > 0 {
		b.WriteString("\nFunctions:\n")
		for _, f := range topFuncs {
			fmt.Fprintf(&b, "- %s", f.Name)
			if f.Docstring != "" {
				fmt.Fprintf(&b, ": %s", f.Docstring)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
