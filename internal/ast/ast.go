// Package ast builds an arena-allocated syntax tree from a tree-sitter parse,
// computing structural and content hashes as it goes (spec §3, §4.2).
package ast

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/predohenr/mergiraf/internal/lang"
)

// Revision tags which of the three merge inputs a node came from.
type Revision uint8

const (
	Base Revision = iota
	Left
	Right
)

func (r Revision) String() string {
	switch r {
	case Base:
		return "base"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Hash is a 256-bit content fingerprint.
type Hash [32]byte

// Node is one syntax node, owned by an Arena and immutable after
// construction. Byte ranges point into the source slice the Arena was built
// from, so rendering ExactTree leaves can copy bytes verbatim without
// re-serializing anything.
type Node struct {
	kind     string
	field    string
	start    int
	end      int
	src      []byte
	Children []*Node

	StructHash  Hash
	ContentHash Hash
	Height      int
}

// Kind is the grammar node type, e.g. "function_declaration".
func (n *Node) Kind() string { return n.kind }

// FieldName is the field label this node has on its parent, if any.
func (n *Node) FieldName() string { return n.field }

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.Children) }

// NthChild satisfies lang.Node; it returns the i-th child.
func (n *Node) NthChild(i int) lang.Node { return n.Children[i] }

// Content returns the node's source bytes.
func (n *Node) Content() []byte { return n.src[n.start:n.end] }

// ByteRange returns the [start, end) byte offsets of this node in source.
func (n *Node) ByteRange() (int, int) { return n.start, n.end }

// IsLeaf reports whether this node has no children (a token).
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Gap returns the source bytes between the end of n and the start of
// next, for reconstructing the separator whitespace between two
// siblings that the grammar doesn't represent as a node of its own.
// Both must belong to the same revision's source.
func (n *Node) Gap(next *Node) []byte {
	return n.src[n.end:next.start]
}

// RevNode is a node tagged with the revision it was parsed from - the
// atomic element the matcher and class mapping operate over (spec §3).
type RevNode struct {
	Revision Revision
	Node     *Node
}

// ParseError reports a failure to parse one revision's content, with the
// byte position tree-sitter flagged as erroneous.
type ParseError struct {
	Revision Revision
	Pos      int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s revision at byte %d", e.Revision, e.Pos)
}

// Build walks a tree-sitter parse tree and constructs an arena-allocated
// Node graph, computing structural and content hashes bottom-up as
// required for fast matching (spec §4.2). It also unwraps any
// profile.FlattenedNodes so their children become siblings of their
// parent's other children.
func Build(tree *sitter.Tree, src []byte, profile *lang.Profile, arena *Arena) (*Node, error) {
	root := tree.RootNode()
	if root.HasError() {
		if errNode := firstErrorNode(root); errNode != nil {
			return nil, &ParseError{Pos: int(errNode.StartByte())}
		}
	}
	return buildNode(root, "", src, profile, arena), nil
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

func buildNode(n *sitter.Node, field string, src []byte, profile *lang.Profile, arena *Arena) *Node {
	node := arena.alloc()
	node.kind = n.Type()
	node.field = field
	node.start = int(n.StartByte())
	node.end = int(n.EndByte())
	node.src = src

	childCount := int(n.ChildCount())
	for i := 0; i < childCount; i++ {
		c := n.Child(i)
		childField := n.FieldNameForChild(i)
		child := buildNode(c, childField, src, profile, arena)
		if profile != nil && profile.IsFlattened(child.kind) {
			node.Children = append(node.Children, child.Children...)
		} else {
			node.Children = append(node.Children, child)
		}
	}

	computeHashes(node)
	return node
}

func computeHashes(n *Node) {
	if len(n.Children) == 0 {
		n.Height = 0
		n.StructHash = hashLeafStructural(n.kind)
		n.ContentHash = hashLeafContent(n.kind, n.Content())
		return
	}
	maxHeight := 0
	structParts := make([]Hash, 0, len(n.Children)+1)
	contentParts := make([]Hash, 0, len(n.Children)+1)
	for _, c := range n.Children {
		if c.Height > maxHeight {
			maxHeight = c.Height
		}
		structParts = append(structParts, c.StructHash)
		contentParts = append(contentParts, c.ContentHash)
	}
	n.Height = maxHeight + 1
	n.StructHash = hashCombine(n.kind, structParts)
	n.ContentHash = hashCombine(n.kind, contentParts)
}
