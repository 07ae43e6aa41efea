package codeextract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// languageGrammars resolves a language identifier to its tree-sitter
// grammar, mirroring the LANGUAGES table the original preprocessor builds
// from the tree_sitter_* Python packages.
var languageGrammars = map[string]func() *sitter.Language{
	"python":     python.GetLanguage,
	"javascript": javascript.GetLanguage,
	"typescript": typescript.GetLanguage,
	"rust":       rust.GetLanguage,
	"java":       java.GetLanguage,
	"c":          c.GetLanguage,
	"cpp":        cpp.GetLanguage,
}

// classNodeTypes, functionNodeTypes and importNodeTypes are this module's
// equivalent of the original's _CLASS_TYPES/_FUNC_TYPES/_IMPORT_TYPES grammar
// node tables: which tree-sitter node type names carry a class, function, or
// import statement for a given language.
var classNodeTypes = map[string]map[string]bool{
	"python":     {"class_definition": true},
	"javascript": {"class_declaration": true},
	"typescript": {"class_declaration": true, "interface_declaration": true},
	"rust":       {"struct_item": true, "enum_item": true, "trait_item": true, "impl_item": true},
	"java":       {"class_declaration": true, "interface_declaration": true, "enum_declaration": true},
	"c":          {"struct_specifier": true},
	"cpp":        {"class_specifier": true, "struct_specifier": true},
}

var functionNodeTypes = map[string]map[string]bool{
	"python":     {"function_definition": true},
	"javascript": {"function_declaration": true, "arrow_function": true, "method_definition": true},
	"typescript": {"function_declaration": true, "arrow_function": true, "method_definition": true},
	"rust":       {"function_item": true},
	"java":       {"method_declaration": true, "constructor_declaration": true},
	"c":          {"function_definition": true},
	"cpp":        {"function_definition": true},
}

var importNodeTypes = map[string]map[string]bool{
	"python":     {"import_statement": true, "import_from_statement": true},
	"javascript": {"import_statement": true},
	"typescript": {"import_statement": true},
	"rust":       {"use_declaration": true},
	"java":       {"import_declaration": true},
	"c":          {"preproc_include": true},
	"cpp":        {"preproc_include": true},
}

// bodyNodeTypes are the node types a signature is cut short at: everything
// from a declaration's start byte up to its body's start byte.
var bodyNodeTypes = map[string]bool{
	"block": true, "compound_statement": true, "statement_block": true,
	"class_body": true, "field_declaration_list": true, "declaration_list": true,
	"interface_body": true,
}

// nameNodeTypes are the node types nodeName treats as an entity's identifier
// when found among a declaration's direct children.
var nameNodeTypes = map[string]bool{
	"identifier": true, "type_identifier": true, "property_identifier": true,
	"field_identifier": true,
}

// declaratorNodeTypes wrap an identifier one level deeper, the shape C/C++
// function and pointer declarators take (e.g. `int *foo(...)` nests `foo`
// inside a pointer_declarator inside a function_declarator).
var declaratorNodeTypes = map[string]bool{
	"function_declarator": true, "pointer_declarator": true,
	"array_declarator": true, "parenthesized_declarator": true,
}

// parseTreeSitter walks a tree-sitter parse tree for one of the seven
// languages without a standard-library parser, grounded on the original
// preprocessor's parser.py: a recursive descent over child nodes classifying
// each as a class/interface, function/method, or import, the same shape as
// parseGo's declaration walk but driven by a real grammar instead of go/ast.
func parseTreeSitter(path, content, language string) ParseResult {
	result := ParseResult{Path: path}
	result.Entities = append(result.Entities, Entity{Kind: "module", Name: path, Path: path})

	grammar, ok := languageGrammars[language]
	if !ok {
		return result
	}

	src := []byte(content)
	parser := sitter.NewParser()
	parser.SetLanguage(grammar())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		return result
	}

	extractNode(tree.RootNode(), src, path, language, path, &result)
	return result
}

func extractNode(node *sitter.Node, src []byte, path, language, parentName string, result *ParseResult) {
	classTypes := classNodeTypes[language]
	funcTypes := functionNodeTypes[language]
	importTypes := importNodeTypes[language]

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		ntype := child.Type()

		switch {
		case classTypes[ntype]:
			name := nodeName(child, src)
			if name == "" {
				continue
			}
			kind := "class"
			if strings.Contains(ntype, "interface") {
				kind = "interface"
			}
			result.Entities = append(result.Entities, Entity{
				Kind: kind, Name: name, Path: path,
				Docstring: truncateDocstring(docstring(child, src, language)),
			})
			result.Relations = append(result.Relations, Relation{Kind: "contains", From: parentName, To: name})
			extractInheritance(child, src, language, name, result)
			extractNode(child, src, path, language, name, result)

		case funcTypes[ntype]:
			name := nodeName(child, src)
			if name == "" {
				continue
			}
			kind, qualified := "function", name
			if parentName != path {
				kind, qualified = "method", parentName+"."+name
			}
			result.Entities = append(result.Entities, Entity{
				Kind: kind, Name: qualified, Path: path,
				Signature: signature(child, src),
				Docstring: truncateDocstring(docstring(child, src, language)),
			})
			result.Relations = append(result.Relations, Relation{Kind: "contains", From: parentName, To: qualified})

		case importTypes[ntype]:
			if target := importTarget(strings.TrimSpace(child.Content(src)), language); target != "" {
				result.Relations = append(result.Relations, Relation{Kind: "imports", From: path, To: target})
			}

		default:
			if child.ChildCount() > 0 {
				extractNode(child, src, path, language, parentName, result)
			}
		}
	}
}

// nodeName finds a declaration's name among its direct children, descending
// one level into a declarator wrapper for C-family pointer/function
// declarators whose identifier isn't a direct child.
func nodeName(n *sitter.Node, src []byte) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if nameNodeTypes[c.Type()] {
			return c.Content(src)
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if declaratorNodeTypes[c.Type()] {
			if name := nodeName(c, src); name != "" {
				return name
			}
		}
	}
	return ""
}

// signature renders source text from a declaration's start up to its body's
// start, the same "first body-block child" rule funcSignature applies to Go.
func signature(n *sitter.Node, src []byte) string {
	start := n.StartByte()
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if bodyNodeTypes[c.Type()] {
			return strings.TrimSpace(string(src[start:c.StartByte()]))
		}
	}
	text := n.Content(src)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// docstring extracts a class/function's doc comment: for Python, the string
// literal statement leading the body block; for the brace languages, an
// immediately preceding comment node.
func docstring(n *sitter.Node, src []byte, language string) string {
	if language != "python" {
		prev := n.PrevSibling()
		if prev == nil {
			return ""
		}
		switch prev.Type() {
		case "comment", "line_comment", "block_comment":
			return strings.Trim(prev.Content(src), "/* \t\n")
		}
		return ""
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		block := n.Child(i)
		if block.Type() != "block" {
			continue
		}
		for j := 0; j < int(block.ChildCount()); j++ {
			stmt := block.Child(j)
			if stmt.Type() != "expression_statement" {
				break
			}
			for k := 0; k < int(stmt.ChildCount()); k++ {
				if expr := stmt.Child(k); expr.Type() == "string" {
					return strings.Trim(expr.Content(src), `"'`)
				}
			}
			break
		}
		break
	}
	return ""
}

// extractInheritance records extends/implements relations from a class-like
// node's children: Python's base-class argument list, and the brace
// languages' superclass/heritage/interfaces clauses.
func extractInheritance(n *sitter.Node, src []byte, language, className string, result *ParseResult) {
	switch language {
	case "python":
		for i := 0; i < int(n.ChildCount()); i++ {
			args := n.Child(i)
			if args.Type() != "argument_list" {
				continue
			}
			for j := 0; j < int(args.ChildCount()); j++ {
				if arg := args.Child(j); arg.Type() == "identifier" {
					result.Relations = append(result.Relations, Relation{Kind: "extends", From: className, To: arg.Content(src)})
				}
			}
		}
	case "java", "typescript", "javascript":
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			switch c.Type() {
			case "superclass":
				if name := nodeName(c, src); name != "" {
					result.Relations = append(result.Relations, Relation{Kind: "extends", From: className, To: name})
				}
			case "class_heritage":
				extractClassHeritage(c, src, className, result)
			case "super_interfaces", "implements_clause":
				for j := 0; j < int(c.ChildCount()); j++ {
					if iface := c.Child(j); nameNodeTypes[iface.Type()] {
						result.Relations = append(result.Relations, Relation{Kind: "implements", From: className, To: iface.Content(src)})
					}
				}
			}
		}
	}
}

// extractClassHeritage handles JS/TS `class X extends Y implements Z`. The
// TypeScript grammar nests extends_clause/implements_clause under a single
// class_heritage node; the JavaScript grammar puts the superclass expression
// directly under class_heritage, after the "extends" keyword.
func extractClassHeritage(n *sitter.Node, src []byte, className string, result *ParseResult) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "extends_clause":
			if name := nodeName(c, src); name != "" {
				result.Relations = append(result.Relations, Relation{Kind: "extends", From: className, To: name})
			}
		case "identifier", "member_expression":
			result.Relations = append(result.Relations, Relation{Kind: "extends", From: className, To: c.Content(src)})
		case "implements_clause":
			for j := 0; j < int(c.ChildCount()); j++ {
				if iface := c.Child(j); nameNodeTypes[iface.Type()] {
					result.Relations = append(result.Relations, Relation{Kind: "implements", From: className, To: iface.Content(src)})
				}
			}
		}
	}
}

// importTarget extracts the imported module/path from an import statement's
// raw source text, mirroring _parse_import_target's per-language string
// slicing rather than a further grammar walk.
func importTarget(text, language string) string {
	switch language {
	case "python":
		switch {
		case strings.HasPrefix(text, "from "):
			parts := strings.Fields(text)
			if len(parts) > 1 {
				return parts[1]
			}
		case strings.HasPrefix(text, "import "):
			rest := strings.TrimPrefix(text, "import ")
			return strings.TrimSpace(strings.Split(rest, ",")[0])
		}
	case "javascript", "typescript":
		if idx := strings.LastIndex(text, "from"); idx >= 0 {
			return strings.Trim(strings.TrimSpace(text[idx+len("from"):]), `"';`)
		}
	case "rust":
		rest := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(text, "use ")), ";")
		return strings.Split(rest, "::")[0]
	case "java":
		return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(text, "import "), ";"))
	case "c", "cpp":
		for _, open := range []string{"<", `"`} {
			idx := strings.Index(text, open)
			if idx < 0 {
				continue
			}
			closer := `"`
			if open == "<" {
				closer = ">"
			}
			rest := text[idx+1:]
			if end := strings.Index(rest, closer); end >= 0 {
				return rest[:end]
			}
		}
	}
	return ""
}
