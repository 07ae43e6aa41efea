// Package codeextract turns source files into the entity/relation graph and
// natural-language summary the knowledge graph ingests, the structural half
// of the ingest worker's codebase pipeline (C13 unpacks the archive, this
// package makes sense of what comes out of it).
package codeextract

// Entity is one node extracted from a source file.
type Entity struct {
	Kind      string // module, class, interface, function, method
	Name      string
	Path      string
	Signature string
	Docstring string
}

// Relation is one directed edge between two entities or an entity and a
// raw string target (e.g. an import path that was never itself emitted as
// an entity).
type Relation struct {
	Kind string // contains, extends, implements, imports
	From string
	To   string
}

// ParseResult is the structural extraction of a single file.
type ParseResult struct {
	Path      string
	Entities  []Entity
	Relations []Relation
}

// SupportedLanguages lists the language identifiers ParseFile accepts.
var SupportedLanguages = map[string]bool{
	"python": true, "javascript": true, "typescript": true, "go": true,
	"rust": true, "java": true, "c": true, "cpp": true,
}
