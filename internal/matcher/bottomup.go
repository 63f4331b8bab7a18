package matcher

import "github.com/predohenr/mergiraf/internal/ast"

// bottomUpExtend matches unmatched internal nodes whose already-matched
// descendants overwhelmingly point into a single candidate on the other
// side (spec §4.3 step 2).
func bottomUpExtend(left, right *ast.Node, m *Matching, simThreshold float64, leftOrder, rightOrder map[*ast.Node]int) {
	rightParents := parentMap(right)

	var postorder []*ast.Node
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		for _, c := range n.Children {
			walk(c)
		}
		postorder = append(postorder, n)
	}
	walk(left)

	for _, n := range postorder {
		if n.IsLeaf() || m.IsLeftMatched(n) {
			continue
		}
		total := countDescendants(n)
		if total == 0 {
			continue
		}
		counts := make(map[*ast.Node]int)
		forEachDescendant(n, func(d *ast.Node) {
			rd, ok := m.Right(d)
			if !ok {
				return
			}
			for a := rd; a != nil; a = rightParents[a] {
				if a.Kind() == n.Kind() && !m.IsRightMatched(a) {
					counts[a]++
				}
			}
		})

		var best *ast.Node
		bestCount := -1
		for cand, c := range counts {
			if c > bestCount || (c == bestCount && rightOrder[cand] < rightOrder[best]) {
				best, bestCount = cand, c
			}
		}
		if best == nil {
			continue
		}
		if float64(bestCount)/float64(total) < simThreshold {
			continue
		}
		m.Add(n, best)
		matchIdenticalChildren(n, best, m)
	}
}

func parentMap(root *ast.Node) map[*ast.Node]*ast.Node {
	parents := make(map[*ast.Node]*ast.Node)
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		for _, c := range n.Children {
			parents[c] = n
			walk(c)
		}
	}
	walk(root)
	return parents
}

func countDescendants(n *ast.Node) int {
	total := 0
	forEachDescendant(n, func(*ast.Node) { total++ })
	return total
}

func forEachDescendant(n *ast.Node, fn func(*ast.Node)) {
	for _, c := range n.Children {
		fn(c)
		forEachDescendant(c, fn)
	}
}

// matchIdenticalChildren opportunistically matches any still-unmatched
// children of l and r that happen to share a structural hash, once their
// parents have just been matched by the bottom-up pass.
func matchIdenticalChildren(l, r *ast.Node, m *Matching) {
	used := make(map[*ast.Node]bool)
	for _, lc := range l.Children {
		if m.IsLeftMatched(lc) {
			continue
		}
		for _, rc := range r.Children {
			if used[rc] || m.IsRightMatched(rc) {
				continue
			}
			if lc.StructHash == rc.StructHash {
				matchSubtreeFull(lc, rc, m)
				used[rc] = true
				break
			}
		}
	}
}
