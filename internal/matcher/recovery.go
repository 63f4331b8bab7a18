package matcher

import "github.com/predohenr/mergiraf/internal/ast"

// recoverUnmatched runs a restricted tree-edit-distance-style alignment
// over small unmatched regions: for every matched pair, align their still
// -unmatched children sequences by a Needleman-Wunsch-like LCS-of-kinds
// pass, bounded to maxSize children on either side (spec §4.3 step 3).
func recoverUnmatched(left, right *ast.Node, m *Matching, maxSize int, leftOrder, rightOrder map[*ast.Node]int) {
	var pairs [][2]*ast.Node
	m.Pairs(func(l, r *ast.Node) { pairs = append(pairs, [2]*ast.Node{l, r}) })
	sortPairsByOrder(pairs, leftOrder)

	for _, p := range pairs {
		l, r := p[0], p[1]
		lUnmatched := unmatchedChildren(l, m, true)
		rUnmatched := unmatchedChildren(r, m, false)
		if len(lUnmatched) == 0 || len(rUnmatched) == 0 {
			continue
		}
		if len(lUnmatched) > maxSize || len(rUnmatched) > maxSize {
			continue
		}
		alignByKind(lUnmatched, rUnmatched, m)
	}
}

func sortPairsByOrder(pairs [][2]*ast.Node, order map[*ast.Node]int) {
	for i := 1; i < len(pairs); i++ {
		j := i
		for j > 0 && order[pairs[j-1][0]] > order[pairs[j][0]] {
			pairs[j-1], pairs[j] = pairs[j], pairs[j-1]
			j--
		}
	}
}

func unmatchedChildren(n *ast.Node, m *Matching, left bool) []*ast.Node {
	var out []*ast.Node
	for _, c := range n.Children {
		if left && !m.IsLeftMatched(c) {
			out = append(out, c)
		} else if !left && !m.IsRightMatched(c) {
			out = append(out, c)
		}
	}
	return out
}

// alignByKind computes a longest-common-subsequence alignment of two
// sequences keyed by (kind, structural hash) equality, then recursively
// matches every aligned pair in full. This approximates RTED for the
// small, already-localized regions the matcher hands it, which is all the
// recovery pass is meant to cover.
func alignByKind(ls, rs []*ast.Node, m *Matching) {
	n, k := len(ls), len(rs)
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, k+1)
	}
	eq := func(a, b *ast.Node) bool {
		return a.Kind() == b.Kind() && a.StructHash == b.StructHash
	}
	for i := n - 1; i >= 0; i-- {
		for j := k - 1; j >= 0; j-- {
			if eq(ls[i], rs[j]) {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}
	i, j := 0, 0
	for i < n && j < k {
		switch {
		case eq(ls[i], rs[j]):
			if !m.IsLeftMatched(ls[i]) && !m.IsRightMatched(rs[j]) {
				matchSubtreeFull(ls[i], rs[j], m)
			}
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			i++
		default:
			j++
		}
	}
}
