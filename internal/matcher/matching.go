// Package matcher computes a partial injective correspondence between the
// nodes of two syntax trees (spec §4.3), GumTree-style: top-down anchoring
// of uniquely-occurring identical subtrees, bottom-up extension from
// already-matched descendants, and an optional small-region recovery pass.
package matcher

import "github.com/predohenr/mergiraf/internal/ast"

// Matching is a partial injective mapping between the nodes of two trees.
// A matched pair always shares a grammar kind.
type Matching struct {
	toRight map[*ast.Node]*ast.Node
	toLeft  map[*ast.Node]*ast.Node
}

// New creates an empty matching.
func New() *Matching {
	return &Matching{
		toRight: make(map[*ast.Node]*ast.Node),
		toLeft:  make(map[*ast.Node]*ast.Node),
	}
}

// Add records a match between l and r. Callers are responsible for
// ensuring neither side is already matched and that Kind()s agree.
func (m *Matching) Add(l, r *ast.Node) {
	m.toRight[l] = r
	m.toLeft[r] = l
}

// Right returns the node on the right matched to l, if any.
func (m *Matching) Right(l *ast.Node) (*ast.Node, bool) {
	r, ok := m.toRight[l]
	return r, ok
}

// Left returns the node on the left matched to r, if any.
func (m *Matching) Left(r *ast.Node) (*ast.Node, bool) {
	l, ok := m.toLeft[r]
	return l, ok
}

// IsLeftMatched reports whether l already has a partner.
func (m *Matching) IsLeftMatched(l *ast.Node) bool {
	_, ok := m.toRight[l]
	return ok
}

// IsRightMatched reports whether r already has a partner.
func (m *Matching) IsRightMatched(r *ast.Node) bool {
	_, ok := m.toLeft[r]
	return ok
}

// Len returns the number of matched pairs.
func (m *Matching) Len() int { return len(m.toRight) }

// Pairs calls fn for every matched pair. Iteration order is unspecified;
// callers needing determinism should sort by the nodes' byte offsets.
func (m *Matching) Pairs(fn func(l, r *ast.Node)) {
	for l, r := range m.toRight {
		fn(l, r)
	}
}

// Config parameterizes one run of the matcher (spec §4.3). Primary is used
// for Base-Left and Base-Right; Auxiliary (cheaper, coarser) for
// Left-Right, since that pass only needs to confirm consistency with the
// two base-mediated matchings.
type Config struct {
	MinHeight       int
	SimThreshold    float64
	MaxRecoverySize int
	UseRecovery     bool
}

// Primary is the default configuration for Base-Left and Base-Right.
var Primary = Config{MinHeight: 1, SimThreshold: 0.4, MaxRecoverySize: 100, UseRecovery: true}

// Auxiliary is the default configuration for Left-Right.
var Auxiliary = Config{MinHeight: 2, SimThreshold: 0.6, MaxRecoverySize: 0, UseRecovery: false}

// Match computes a matching between left and right under cfg.
func Match(left, right *ast.Node, cfg Config) *Matching {
	m := New()
	leftOrder := preorderIndex(left)
	rightOrder := preorderIndex(right)

	topDownAnchor(left, right, cfg.MinHeight, m)
	bottomUpExtend(left, right, m, cfg.SimThreshold, leftOrder, rightOrder)
	if cfg.UseRecovery {
		recoverUnmatched(left, right, m, cfg.MaxRecoverySize, leftOrder, rightOrder)
	}
	return m
}

func preorderIndex(root *ast.Node) map[*ast.Node]int {
	idx := make(map[*ast.Node]int)
	i := 0
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		idx[n] = i
		i++
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return idx
}
