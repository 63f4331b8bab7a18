// Package mergedtree builds the result of a structured merge: a tree of
// exact-reuse, reconciled, and conflicted spans (spec §3 "Merged Tree",
// §4.6).
package mergedtree

import (
	"github.com/predohenr/mergiraf/internal/ast"
	"github.com/predohenr/mergiraf/internal/classmap"
	"github.com/predohenr/mergiraf/internal/lang"
	"github.com/predohenr/mergiraf/internal/pcs"
)

// Kind discriminates the three shapes a Node can take.
type Kind int

const (
	// ExactTree reuses one revision's source bytes verbatim.
	ExactTree Kind = iota
	// MixedTree had to be reconciled child by child.
	MixedTree
	// Conflict could not be reconciled; it carries the competing spans.
	Conflict
)

// Node is one node of the merged tree.
type Node struct {
	Kind   Kind
	Leader *classmap.Leader

	// ExactTree: which revisions this span is reused from (all share the
	// same structural hash, so any one may be rendered).
	RevSet []ast.Revision

	// MixedTree: reconciled children, in final order.
	Children []*Node

	// Conflict: the original, unreconciled child sequences.
	LeftSeq, BaseSeq, RightSeq []*ast.Node
}

// Build constructs the merged tree rooted at rootLeader.
func Build(cm *classmap.ClassMapping, prof *lang.Profile, merged *pcs.Result, rootLeader *classmap.Leader) *Node {
	return buildNode(cm, prof, merged, rootLeader)
}

func buildNode(cm *classmap.ClassMapping, prof *lang.Profile, merged *pcs.Result, leader *classmap.Leader) *Node {
	revset := leader.RevisionSet()
	if sameStructHashEverywhere(leader, revset) {
		return &Node{Kind: ExactTree, Leader: leader, RevSet: revset}
	}

	if prof != nil && prof.IsAtomic(leader.Kind()) {
		return atomicResolve(leader, revset)
	}

	if prof != nil && prof.IsCommutative(leader.Kind(), "") {
		children := commutativeChildren(cm, merged, leader)
		return &Node{
			Kind:     MixedTree,
			Leader:   leader,
			Children: buildChildren(cm, prof, merged, children),
		}
	}

	order, ok := merged.ChildOrder(leader)
	if !ok {
		left, base, right := childSequences(leader)
		return &Node{Kind: Conflict, Leader: leader, LeftSeq: left, BaseSeq: base, RightSeq: right}
	}
	return &Node{
		Kind:     MixedTree,
		Leader:   leader,
		Children: buildChildren(cm, prof, merged, order),
	}
}

func buildChildren(cm *classmap.ClassMapping, prof *lang.Profile, merged *pcs.Result, leaders []*classmap.Leader) []*Node {
	out := make([]*Node, 0, len(leaders))
	for _, l := range leaders {
		out = append(out, buildNode(cm, prof, merged, l))
	}
	return out
}

func sameStructHashEverywhere(leader *classmap.Leader, revset []ast.Revision) bool {
	if len(revset) == 0 {
		return true
	}
	first, _ := leader.NodeAt(revset[0])
	for _, r := range revset[1:] {
		n, _ := leader.NodeAt(r)
		if n.StructHash != first.StructHash {
			return false
		}
	}
	return true
}

// atomicResolve handles a leader whose kind is registered atomic and whose
// structural hash differs across revisions: rather than descend into its
// children, resolve (or conflict) on the whole node (spec §4.5 "Atomic
// nodes").
func atomicResolve(leader *classmap.Leader, revset []ast.Revision) *Node {
	base, hasBase := leader.NodeAt(ast.Base)
	left, hasLeft := leader.NodeAt(ast.Left)
	right, hasRight := leader.NodeAt(ast.Right)

	switch {
	case hasBase && hasLeft && hasRight:
		leftChanged := left.StructHash != base.StructHash
		rightChanged := right.StructHash != base.StructHash
		switch {
		case !leftChanged && rightChanged:
			return &Node{Kind: ExactTree, Leader: leader, RevSet: []ast.Revision{ast.Right}}
		case leftChanged && !rightChanged:
			return &Node{Kind: ExactTree, Leader: leader, RevSet: []ast.Revision{ast.Left}}
		case leftChanged && rightChanged && left.StructHash == right.StructHash:
			return &Node{Kind: ExactTree, Leader: leader, RevSet: []ast.Revision{ast.Left, ast.Right}}
		default:
			return &Node{Kind: Conflict, Leader: leader,
				LeftSeq: []*ast.Node{left}, BaseSeq: []*ast.Node{base}, RightSeq: []*ast.Node{right}}
		}
	case hasLeft && hasRight && !hasBase:
		// Independently added on both sides, mapped to the same leader by
		// the Left-Right matcher, but with different content.
		return &Node{Kind: Conflict, Leader: leader,
			LeftSeq: []*ast.Node{left}, RightSeq: []*ast.Node{right}}
	case hasLeft && !hasRight:
		return &Node{Kind: ExactTree, Leader: leader, RevSet: []ast.Revision{ast.Left}}
	case hasRight && !hasLeft:
		return &Node{Kind: ExactTree, Leader: leader, RevSet: []ast.Revision{ast.Right}}
	default:
		return &Node{Kind: ExactTree, Leader: leader, RevSet: revset}
	}
}

// commutativeChildren implements the order-insensitive reconciliation rule
// (spec §4.5 "Commutative parents"): the surviving child set is whatever
// the merged PCS triples still reference under this parent, ordered by
// Base's relative order, then Left-only additions in Left's order, then
// Right-only additions in Right's order.
func commutativeChildren(cm *classmap.ClassMapping, merged *pcs.Result, parent *classmap.Leader) []*classmap.Leader {
	survivors := make(map[*classmap.Leader]bool)
	for t := range merged.Set {
		if t.Parent == parent && t.Successor != nil {
			survivors[t.Successor] = true
		}
	}

	var out []*classmap.Leader
	seen := make(map[*classmap.Leader]bool)
	add := func(rev ast.Revision) {
		node, ok := parent.NodeAt(rev)
		if !ok {
			return
		}
		for _, c := range node.Children {
			l := cm.MapToLeader(ast.RevNode{Revision: rev, Node: c})
			if survivors[l] && !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	add(ast.Base)
	add(ast.Left)
	add(ast.Right)
	return out
}

// childSequences returns each present revision's raw children, for a
// Conflict node that couldn't be reconciled at all.
func childSequences(leader *classmap.Leader) (left, base, right []*ast.Node) {
	if n, ok := leader.NodeAt(ast.Left); ok {
		left = n.Children
	}
	if n, ok := leader.NodeAt(ast.Base); ok {
		base = n.Children
	}
	if n, ok := leader.NodeAt(ast.Right); ok {
		right = n.Children
	}
	return
}

// CheckDuplicateSignatures walks the merged tree looking for sibling
// declarations whose signature_extractor produces the same value - a sign
// that independent additions on both sides introduced a conflicting
// duplicate that structural merge alone can't see (spec §4.5 "Signature
// post-check"). It never marks a textual conflict, only reports the issue.
func CheckDuplicateSignatures(root *Node, prof *lang.Profile) bool {
	if prof == nil || prof.SignatureExtractor == nil {
		return false
	}
	var found bool
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Kind == MixedTree {
			seen := make(map[string]bool)
			for _, c := range n.Children {
				rep := representative(c)
				if rep == nil {
					continue
				}
				sig := prof.SignatureExtractor(rep)
				if sig == "" {
					continue
				}
				if seen[sig] {
					found = true
				}
				seen[sig] = true
			}
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	walk(root)
	return found
}

func representative(n *Node) *ast.Node {
	if n.Leader == nil {
		return nil
	}
	for _, r := range [...]ast.Revision{ast.Left, ast.Base, ast.Right} {
		if node, ok := n.Leader.NodeAt(r); ok {
			return node
		}
	}
	return nil
}
