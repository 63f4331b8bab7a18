// Package lang provides per-grammar language profiles: which tree-sitter
// grammar parses a file, which of its constructs are order-insensitive or
// atomic, and how to derive a stable signature for a declaration.
package lang

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// Node is the minimal view of a parsed node a Profile needs, satisfied by
// *ast.Node (see internal/ast). Declared here, rather than imported from
// ast, to avoid a dependency cycle: package ast imports lang.
type Node interface {
	Kind() string
	FieldName() string
	ChildCount() int
	NthChild(i int) Node
	Content() []byte
}

// FieldKey identifies a (parent kind, child field) pair whose children are
// semantically unordered, e.g. an import list or a class's method order.
type FieldKey struct {
	ParentKind string
	Field      string
}

// Profile holds everything the merge pipeline needs to know about one
// grammar: how to detect it, how to parse with it, and which structural
// idioms of the language change conflict detection.
type Profile struct {
	Name              string
	Extensions        []string
	SpecialFilenames  []string
	Grammar           *sitter.Language
	CommutativeFields map[FieldKey]bool
	AtomicNodes       map[string]bool
	FlattenedNodes    map[string]bool
	// SignatureExtractor returns a stable identifier for a declaration node
	// (e.g. method name plus erased parameter types), used to flag
	// duplicate declarations introduced by independent additions on both
	// sides of a merge. Nil means the language has no notion of signatures.
	SignatureExtractor func(n Node) string
}

// Matches reports whether path should be parsed with this profile, by
// extension (case-insensitive) or exact/glob special filename.
func (p *Profile) Matches(path string) bool {
	base := filepath.Base(path)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	for _, e := range p.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	for _, pattern := range p.SpecialFilenames {
		if base == pattern {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// IsCommutative reports whether children of field under a node of kind
// parentKind are order-insensitive.
func (p *Profile) IsCommutative(parentKind, field string) bool {
	return p.CommutativeFields[FieldKey{ParentKind: parentKind, Field: field}]
}

// IsAtomic reports whether kind should be merged as a whole rather than
// descended into.
func (p *Profile) IsAtomic(kind string) bool {
	return p.AtomicNodes[kind]
}

// IsFlattened reports whether children of kind should be spliced into
// their parent's child list instead of kept nested.
func (p *Profile) IsFlattened(kind string) bool {
	return p.FlattenedNodes[kind]
}

// ErrUnsupportedLanguage is returned by Detect when no profile matches.
type ErrUnsupportedLanguage struct {
	Path string
}

func (e *ErrUnsupportedLanguage) Error() string {
	return fmt.Sprintf("no supported language for %q; run `mergiraf languages` to list them", e.Path)
}

// registry is populated by init() below, in the deterministic order the
// `languages` command prints them in.
var registry []*Profile

// Detect picks a Profile from a file path's extension or exact filename.
func Detect(path string) (*Profile, error) {
	for _, p := range registry {
		if p.Matches(path) {
			return p, nil
		}
	}
	return nil, &ErrUnsupportedLanguage{Path: path}
}

// ByName looks up a profile by its canonical name or one of its extensions.
func ByName(name string) (*Profile, bool) {
	name = strings.ToLower(name)
	for _, p := range registry {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
		for _, e := range p.Extensions {
			if strings.EqualFold(e, name) {
				return p, true
			}
		}
	}
	return nil, false
}

// All returns every registered profile, in registration order.
func All() []*Profile {
	out := make([]*Profile, len(registry))
	copy(out, registry)
	return out
}

func register(p *Profile) {
	registry = append(registry, p)
}

func init() {
	register(&Profile{
		Name:       "Go",
		Extensions: []string{"go"},
		Grammar:    golang.GetLanguage(),
		CommutativeFields: map[FieldKey]bool{
			{ParentKind: "import_spec_list", Field: ""}: true,
		},
		AtomicNodes: map[string]bool{
			"interpreted_string_literal": true,
			"raw_string_literal":         true,
			"comment":                    true,
		},
		SignatureExtractor: goSignature,
	})

	register(&Profile{
		Name:       "JavaScript",
		Extensions: []string{"js", "jsx", "mjs", "cjs"},
		Grammar:    javascript.GetLanguage(),
		CommutativeFields: map[FieldKey]bool{
			{ParentKind: "class_body", Field: ""}: true,
		},
		AtomicNodes: map[string]bool{
			"string":  true,
			"comment": true,
			"regex":   true,
		},
		SignatureExtractor: jsSignature,
	})

	register(&Profile{
		Name:       "TypeScript",
		Extensions: []string{"ts", "tsx", "mts", "cts"},
		Grammar:    typescript.GetLanguage(),
		CommutativeFields: map[FieldKey]bool{
			{ParentKind: "class_body", Field: ""}: true,
		},
		AtomicNodes: map[string]bool{
			"string":  true,
			"comment": true,
		},
		SignatureExtractor: jsSignature,
	})

	register(&Profile{
		Name:       "Python",
		Extensions: []string{"py", "pyi"},
		Grammar:    python.GetLanguage(),
		AtomicNodes: map[string]bool{
			"string":  true,
			"comment": true,
		},
		SignatureExtractor: pySignature,
	})

	register(&Profile{
		Name:             "Ruby",
		Extensions:       []string{"rb"},
		SpecialFilenames: []string{"Gemfile", "Rakefile"},
		Grammar:          ruby.GetLanguage(),
		AtomicNodes: map[string]bool{
			"string":  true,
			"comment": true,
		},
		SignatureExtractor: rubySignature,
	})

	register(&Profile{
		Name:       "Java",
		Extensions: []string{"java"},
		Grammar:    java.GetLanguage(),
		CommutativeFields: map[FieldKey]bool{
			{ParentKind: "class_body", Field: ""}:         true,
			{ParentKind: "import_declaration", Field: ""}: true,
		},
		AtomicNodes: map[string]bool{
			"string_literal": true,
			"comment":        true,
			"block_comment":  true,
		},
		SignatureExtractor: javaSignature,
	})

	register(&Profile{
		Name:             "Bash",
		Extensions:       []string{"sh", "bash"},
		SpecialFilenames: []string{".bashrc", ".bash_profile"},
		Grammar:          bash.GetLanguage(),
		AtomicNodes: map[string]bool{
			"string":  true,
			"comment": true,
		},
	})

	register(&Profile{
		Name:       "HTML",
		Extensions: []string{"html", "htm"},
		Grammar:    html.GetLanguage(),
		AtomicNodes: map[string]bool{
			"comment": true,
		},
	})

	register(&Profile{
		Name:       "CSS",
		Extensions: []string{"css"},
		Grammar:    css.GetLanguage(),
		CommutativeFields: map[FieldKey]bool{
			{ParentKind: "block", Field: ""}: true,
		},
		AtomicNodes: map[string]bool{
			"comment":      true,
			"string_value": true,
		},
	})

	register(&Profile{
		Name:             "YAML",
		Extensions:       []string{"yaml", "yml"},
		SpecialFilenames: []string{"*.gitlab-ci.yml"},
		Grammar:          yaml.GetLanguage(),
		AtomicNodes: map[string]bool{
			"comment":             true,
			"single_quote_scalar": true,
			"double_quote_scalar": true,
		},
	})
}
