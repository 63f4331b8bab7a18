// Package pcs implements the Parent-Child-Successor triple model and the
// 3DM three-way merge over triple sets (spec §4.5). A triple
// (parent, child, successor) encodes "child is immediately followed by
// successor under parent, in some revision"; nil stands for the sentinel
// ⊥ marking the first/last slot in a child list.
package pcs

import "github.com/predohenr/mergiraf/internal/ast"
import "github.com/predohenr/mergiraf/internal/classmap"

// Triple is one Parent-Child-Successor fact.
type Triple struct {
	Parent, Child, Successor *classmap.Leader
}

// Set is a deduplicated collection of triples.
type Set map[Triple]bool

// Build emits every PCS triple implied by root's tree in revision rev: for
// each node with children c1..cn, the triples (p,⊥,c1), (p,c1,c2), ...,
// (p,cn,⊥), with every node replaced by its class-mapping leader.
func Build(root *ast.Node, rev ast.Revision, cm *classmap.ClassMapping) Set {
	set := make(Set)
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if len(n.Children) > 0 {
			parent := cm.MapToLeader(ast.RevNode{Revision: rev, Node: n})
			var prev *classmap.Leader
			for _, c := range n.Children {
				child := cm.MapToLeader(ast.RevNode{Revision: rev, Node: c})
				set[Triple{Parent: parent, Child: prev, Successor: child}] = true
				prev = child
			}
			set[Triple{Parent: parent, Child: prev, Successor: nil}] = true
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return set
}

func intersect(a, b Set) Set {
	out := make(Set)
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	for t := range small {
		if big[t] {
			out[t] = true
		}
	}
	return out
}

func diff(a, b Set) Set {
	out := make(Set)
	for t := range a {
		if !b[t] {
			out[t] = true
		}
	}
	return out
}

func union(sets ...Set) Set {
	out := make(Set)
	for _, s := range sets {
		for t := range s {
			out[t] = true
		}
	}
	return out
}

// Merge implements the 3DM formula (spec §4.5):
//
//	merged = (Base ∩ Left ∩ Right) ∪ (Left \ Base) ∪ (Right \ Base)
//	         \ (Base \ Left) \ (Base \ Right)
func Merge(base, left, right Set) Set {
	merged := union(intersect(intersect(base, left), right), diff(left, base), diff(right, base))
	merged = diff(merged, diff(base, left))
	merged = diff(merged, diff(base, right))
	return merged
}

// Result indexes a merged Set for tree reconstruction.
type Result struct {
	Set      Set
	byParent map[*classmap.Leader][]Triple
	// bySuccessor maps a non-sentinel leader to the distinct parents it is
	// a child of, across the merged set - used to detect a node claimed by
	// two different parents (spec §4.5 "two different parents").
	bySuccessor map[*classmap.Leader]map[*classmap.Leader]bool
}

// Index builds lookup structures over a merged Set.
func Index(merged Set) *Result {
	r := &Result{
		Set:         merged,
		byParent:    make(map[*classmap.Leader][]Triple),
		bySuccessor: make(map[*classmap.Leader]map[*classmap.Leader]bool),
	}
	for t := range merged {
		r.byParent[t.Parent] = append(r.byParent[t.Parent], t)
		if t.Successor != nil {
			if r.bySuccessor[t.Successor] == nil {
				r.bySuccessor[t.Successor] = make(map[*classmap.Leader]bool)
			}
			r.bySuccessor[t.Successor][t.Parent] = true
		}
	}
	return r
}

// ChildOrder reconstructs the linear child order of parent by walking the
// ⊥-to-⊥ chain of Child→Successor links. ok is false if the chain branches,
// cycles, or doesn't terminate - any of which marks parent as conflicted
// (spec §4.5 "not a well-formed forest").
func (r *Result) ChildOrder(parent *classmap.Leader) (order []*classmap.Leader, ok bool) {
	triples := r.byParent[parent]
	if len(triples) == 0 {
		return nil, true
	}
	succOf := make(map[*classmap.Leader][]*classmap.Leader)
	for _, t := range triples {
		succOf[t.Child] = append(succOf[t.Child], t.Successor)
	}

	visited := make(map[*classmap.Leader]bool)
	cur := (*classmap.Leader)(nil)
	maxSteps := len(triples) + 1
	for step := 0; ; step++ {
		if step > maxSteps {
			return nil, false
		}
		succs := succOf[cur]
		if len(succs) != 1 {
			return nil, false
		}
		next := succs[0]
		if next == nil {
			break
		}
		if visited[next] {
			return nil, false
		}
		visited[next] = true
		order = append(order, next)
		cur = next
	}
	if len(order) != len(triples)-1 {
		// Some triple's Child never got chained in as a predecessor: a
		// dangling fragment, not a single well-formed sequence.
		return nil, false
	}
	return order, true
}

// Reparented returns leaders that the merged set claims as a child of more
// than one distinct parent.
func (r *Result) Reparented() []*classmap.Leader {
	var out []*classmap.Leader
	for child, parents := range r.bySuccessor {
		if len(parents) > 1 {
			out = append(out, child)
		}
	}
	return out
}
