package matcher

import "github.com/predohenr/mergiraf/internal/ast"

// topDownAnchor matches the roots (and, transitively, every descendant) of
// every maximal subtree whose structural hash occurs exactly once on each
// side and whose height is at least minHeight (spec §4.3 step 1).
func topDownAnchor(left, right *ast.Node, minHeight int, m *Matching) {
	leftIdx := indexByHash(left, minHeight)
	rightIdx := indexByHash(right, minHeight)

	var anchors []struct{ l, r *ast.Node }
	for h, ls := range leftIdx {
		if len(ls) != 1 {
			continue
		}
		rs, ok := rightIdx[h]
		if !ok || len(rs) != 1 {
			continue
		}
		anchors = append(anchors, struct{ l, r *ast.Node }{ls[0], rs[0]})
	}

	// Only keep maximal anchors: skip a candidate whose subtree is
	// entirely contained within an already-larger matched anchor's
	// subtree, by processing tallest first and letting matchAll skip
	// already-matched nodes.
	sortByHeightDesc(anchors)

	for _, a := range anchors {
		if m.IsLeftMatched(a.l) || m.IsRightMatched(a.r) {
			continue
		}
		matchSubtreeFull(a.l, a.r, m)
	}
}

func sortByHeightDesc(anchors []struct{ l, r *ast.Node }) {
	for i := 1; i < len(anchors); i++ {
		j := i
		for j > 0 && anchors[j-1].l.Height < anchors[j].l.Height {
			anchors[j-1], anchors[j] = anchors[j], anchors[j-1]
			j--
		}
	}
}

// indexByHash groups nodes of height >= minHeight by structural hash.
func indexByHash(root *ast.Node, minHeight int) map[ast.Hash][]*ast.Node {
	idx := make(map[ast.Hash][]*ast.Node)
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n.Height >= minHeight {
			idx[n.StructHash] = append(idx[n.StructHash], n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return idx
}

// matchSubtreeFull matches l to r and, since they share a structural hash,
// recursively matches their children positionally (same kind, same count,
// by construction of the hash).
func matchSubtreeFull(l, r *ast.Node, m *Matching) {
	if m.IsLeftMatched(l) || m.IsRightMatched(r) {
		return
	}
	m.Add(l, r)
	for i := range l.Children {
		matchSubtreeFull(l.Children[i], r.Children[i], m)
	}
}
