package codeextract

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// parseGo walks a Go source file with the standard library's own parser —
// the one language here with a syntax tree this module can always obtain
// without an external tree-sitter binding.
func parseGo(path, content string) ParseResult {
	result := ParseResult{Path: path}
	result.Entities = append(result.Entities, Entity{Kind: "module", Name: path, Path: path})

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return result
	}

	for _, imp := range file.Imports {
		target := strings.Trim(imp.Path.Value, `"`)
		result.Relations = append(result.Relations, Relation{Kind: "imports", From: path, To: target})
	}

	// Collect method receivers keyed by the receiver type name so methods can
	// be attached to their struct's "class" entity and qualified Parent.Name.
	methodsByReceiver := map[string][]*ast.FuncDecl{}
	var topLevelFuncs []*ast.FuncDecl
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if fn.Recv == nil || len(fn.Recv.List) == 0 {
			topLevelFuncs = append(topLevelFuncs, fn)
			continue
		}
		recvName := receiverTypeName(fn.Recv.List[0].Type)
		methodsByReceiver[recvName] = append(methodsByReceiver[recvName], fn)
	}

	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			name := ts.Name.Name
			kind := "class"
			if _, isIface := ts.Type.(*ast.InterfaceType); isIface {
				kind = "interface"
			}
			result.Entities = append(result.Entities, Entity{
				Kind: kind, Name: name, Path: path,
				Docstring: truncateDocstring(docText(gen.Doc)),
			})
			result.Relations = append(result.Relations, Relation{Kind: "contains", From: path, To: name})

			for _, m := range methodsByReceiver[name] {
				result.Entities = append(result.Entities, Entity{
					Kind:      "method",
					Name:      name + "." + m.Name.Name,
					Path:      path,
					Signature: funcSignature(fset, content, m),
					Docstring: truncateDocstring(docText(m.Doc)),
				})
				result.Relations = append(result.Relations, Relation{Kind: "contains", From: name, To: name + "." + m.Name.Name})
			}
		}
	}

	for _, fn := range topLevelFuncs {
		result.Entities = append(result.Entities, Entity{
			Kind:      "function",
			Name:      fn.Name.Name,
			Path:      path,
			Signature: funcSignature(fset, content, fn),
			Docstring: truncateDocstring(docText(fn.Doc)),
		})
		result.Relations = append(result.Relations, Relation{Kind: "contains", From: path, To: fn.Name.Name})
	}

	return result
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return ""
	}
}

func docText(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	return strings.TrimSpace(cg.Text())
}

func truncateDocstring(s string) string {
	if len(s) > 200 {
		return s[:200]
	}
	return s
}

// funcSignature renders source text from the func keyword up to (not
// including) the body block, matching the "first body-block child" rule
// used for the other languages' heuristic scan.
func funcSignature(fset *token.FileSet, content string, fn *ast.FuncDecl) string {
	start := fset.Position(fn.Pos()).Offset
	end := len(content)
	if fn.Body != nil {
		end = fset.Position(fn.Body.Pos()).Offset
	} else {
		end = fset.Position(fn.End()).Offset
	}
	if start < 0 || end < start || end > len(content) {
		return strings.TrimSpace(fn.Name.Name)
	}
	return strings.TrimSpace(content[start:end])
}
