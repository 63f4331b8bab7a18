// Package classmap combines the three pairwise tree matchings (Base-Left,
// Base-Right, Left-Right) into a single class mapping: equivalence classes
// of nodes across the three revisions, each with a canonical Leader
// (spec §3 "Leader", §4.4).
package classmap

import (
	"fmt"
	"sort"

	"github.com/predohenr/mergiraf/internal/ast"
	"github.com/predohenr/mergiraf/internal/matcher"
)

// Leader is the canonical representative of one equivalence class: the
// Base member if present, else Left, else Right.
type Leader struct {
	id      int
	kind    string
	members map[ast.Revision]*ast.Node
}

// Kind is the grammar kind shared by every member of this class.
func (l *Leader) Kind() string { return l.kind }

// NodeAt returns the member of this class in revision rev, if any.
func (l *Leader) NodeAt(rev ast.Revision) (*ast.Node, bool) {
	n, ok := l.members[rev]
	return n, ok
}

// RevisionSet returns the non-empty subset of revisions this class has a
// member in.
func (l *Leader) RevisionSet() []ast.Revision {
	var out []ast.Revision
	for _, r := range [...]ast.Revision{ast.Base, ast.Left, ast.Right} {
		if _, ok := l.members[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// InBase, InLeft, InRight are convenience presence checks.
func (l *Leader) InBase() bool  { _, ok := l.members[ast.Base]; return ok }
func (l *Leader) InLeft() bool  { _, ok := l.members[ast.Left]; return ok }
func (l *Leader) InRight() bool { _, ok := l.members[ast.Right]; return ok }

// ErrInconsistentMatching reports a matching-invariant violation: two
// nodes of the same revision ended up in the same class. Treated as an
// internal bug (spec §7) - structured merge should abort for this input.
type ErrInconsistentMatching struct {
	Kind string
	Rev  ast.Revision
}

func (e *ErrInconsistentMatching) Error() string {
	return fmt.Sprintf("inconsistent matching: class of kind %q has two %s members", e.Kind, e.Rev)
}

// ClassMapping partitions the RevNodes of three revisions into classes.
type ClassMapping struct {
	leaderOf map[ast.RevNode]*Leader
	leaders  []*Leader
}

// MapToLeader returns the class containing rn. Every node of every
// revision belongs to exactly one class, even an unmatched one (a
// singleton class containing only itself).
func (c *ClassMapping) MapToLeader(rn ast.RevNode) *Leader {
	return c.leaderOf[rn]
}

// NodeAtRev returns the member of leader's class in revision rev.
func (c *ClassMapping) NodeAtRev(l *Leader, rev ast.Revision) (*ast.Node, bool) {
	return l.NodeAt(rev)
}

// RevisionSet returns which revisions leader has a member in.
func (c *ClassMapping) RevisionSet(l *Leader) []ast.Revision {
	return l.RevisionSet()
}

// Leaders returns every leader in deterministic order: pre-order of Base,
// then Left-only additions in Left order, then Right-only additions in
// Right order (spec §4.4).
func (c *ClassMapping) Leaders() []*Leader {
	return c.leaders
}

// disjoint set over RevNodes, used only during Build.
type unionFind struct {
	parent map[ast.RevNode]ast.RevNode
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[ast.RevNode]ast.RevNode)}
}

func (u *unionFind) find(x ast.RevNode) ast.RevNode {
	p, ok := u.parent[x]
	if !ok {
		return x
	}
	if p == x {
		return x
	}
	root := u.find(p)
	u.parent[x] = root
	return root
}

// union merges the classes of x and y, refusing (and reporting failure)
// if their current representatives have different grammar kinds.
func (u *unionFind) union(x, y ast.RevNode) bool {
	rx, ry := u.find(x), u.find(y)
	if rx == ry {
		return true
	}
	if rx.Node.Kind() != ry.Node.Kind() {
		return false
	}
	u.parent[ry] = rx
	return true
}

// Build constructs the class mapping from the three pairwise matchings.
func Build(base, left, right *ast.Node, bl, br, lr *matcher.Matching) (*ClassMapping, error) {
	uf := newUnionFind()

	bl.Pairs(func(b, l *ast.Node) {
		uf.union(ast.RevNode{Revision: ast.Base, Node: b}, ast.RevNode{Revision: ast.Left, Node: l})
	})
	br.Pairs(func(b, r *ast.Node) {
		uf.union(ast.RevNode{Revision: ast.Base, Node: b}, ast.RevNode{Revision: ast.Right, Node: r})
	})

	// Record, per current root, the (at most one) Base RevNode it contains,
	// so Left-Right edges that would bridge two distinct Base-mediated
	// classes can be rejected rather than silently merging them.
	baseOf := make(map[ast.RevNode]ast.RevNode)
	walkPreorder(base, func(b *ast.Node) {
		rn := ast.RevNode{Revision: ast.Base, Node: b}
		baseOf[uf.find(rn)] = rn
	})

	var lrPairs []struct{ l, r *ast.Node }
	lr.Pairs(func(l, r *ast.Node) {
		lrPairs = append(lrPairs, struct{ l, r *ast.Node }{l, r})
	})
	leftOrder := preorderIndex(left)
	sort.Slice(lrPairs, func(i, j int) bool { return leftOrder[lrPairs[i].l] < leftOrder[lrPairs[j].l] })

	for _, p := range lrPairs {
		lRN := ast.RevNode{Revision: ast.Left, Node: p.l}
		rRN := ast.RevNode{Revision: ast.Right, Node: p.r}
		rl, rr := uf.find(lRN), uf.find(rRN)
		if rl == rr {
			continue
		}
		bl1, ok1 := baseOf[rl]
		br1, ok2 := baseOf[rr]
		if ok1 && ok2 && bl1 != br1 {
			// Inconsistent: L-R says l~r, but l and r are each already
			// mediated to a *different* Base node. Keep the Base-mediated
			// edges and drop this weaker direct one.
			continue
		}
		if !uf.union(lRN, rRN) {
			continue
		}
		newRoot := uf.find(lRN)
		switch {
		case ok1:
			baseOf[newRoot] = bl1
		case ok2:
			baseOf[newRoot] = br1
		}
	}

	// Group every RevNode in all three trees by its final root.
	groups := make(map[ast.RevNode][]ast.RevNode)
	addAll := func(root *ast.Node, rev ast.Revision) {
		walkPreorder(root, func(n *ast.Node) {
			rn := ast.RevNode{Revision: rev, Node: n}
			r := uf.find(rn)
			groups[r] = append(groups[r], rn)
		})
	}
	addAll(base, ast.Base)
	addAll(left, ast.Left)
	addAll(right, ast.Right)

	cm := &ClassMapping{leaderOf: make(map[ast.RevNode]*Leader)}
	emitted := make(map[ast.RevNode]bool)

	emit := func(rn ast.RevNode) error {
		root := uf.find(rn)
		if emitted[root] {
			return nil
		}
		members := groups[root]
		leader := &Leader{id: len(cm.leaders), kind: rn.Node.Kind(), members: make(map[ast.Revision]*ast.Node)}
		seen := make(map[ast.Revision]bool)
		for _, m := range members {
			if seen[m.Revision] {
				return &ErrInconsistentMatching{Kind: leader.kind, Rev: m.Revision}
			}
			seen[m.Revision] = true
			leader.members[m.Revision] = m.Node
			cm.leaderOf[m] = leader
		}
		cm.leaders = append(cm.leaders, leader)
		emitted[root] = true
		return nil
	}

	var emitErr error
	walkPreorder(base, func(n *ast.Node) {
		if emitErr == nil {
			emitErr = emit(ast.RevNode{Revision: ast.Base, Node: n})
		}
	})
	if emitErr == nil {
		walkPreorder(left, func(n *ast.Node) {
			if emitErr == nil {
				emitErr = emit(ast.RevNode{Revision: ast.Left, Node: n})
			}
		})
	}
	if emitErr == nil {
		walkPreorder(right, func(n *ast.Node) {
			if emitErr == nil {
				emitErr = emit(ast.RevNode{Revision: ast.Right, Node: n})
			}
		})
	}
	if emitErr != nil {
		return nil, emitErr
	}

	return cm, nil
}

func walkPreorder(n *ast.Node, fn func(*ast.Node)) {
	fn(n)
	for _, c := range n.Children {
		walkPreorder(c, fn)
	}
}

func preorderIndex(root *ast.Node) map[*ast.Node]int {
	idx := make(map[*ast.Node]int)
	i := 0
	walkPreorder(root, func(n *ast.Node) {
		idx[n] = i
		i++
	})
	return idx
}
