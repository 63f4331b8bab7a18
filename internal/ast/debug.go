package ast

import (
	"fmt"
	"strings"
)

// AsciiTree renders the node and its descendants as an indented outline,
// for use in test failure messages and `--debug` dumps.
func AsciiTree(n *Node) string {
	var b strings.Builder
	asciiTree(n, 0, &b)
	return b.String()
}

func asciiTree(n *Node, depth int, b *strings.Builder) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.kind)
	if n.field != "" {
		fmt.Fprintf(b, " (%s)", n.field)
	}
	if n.IsLeaf() {
		fmt.Fprintf(b, " %q", n.Content())
	}
	b.WriteByte('\n')
	for _, c := range n.Children {
		asciiTree(c, depth+1, b)
	}
}

// IsomorphicTo reports whether two nodes have the same content hash, i.e.
// identical shape, kinds and leaf bytes. Whitespace between tokens is not
// part of the hash; comment nodes count like any other node.
func IsomorphicTo(a, b *Node) bool {
	return a.ContentHash == b.ContentHash
}
