// Package render reconstructs text from a merged tree, emitting diff3
// -style conflict markers wherever reconciliation failed (spec §4.6, §6).
package render

import (
	"strings"

	"github.com/predohenr/mergiraf/internal/ast"
	"github.com/predohenr/mergiraf/internal/classmap"
	"github.com/predohenr/mergiraf/internal/mergedtree"
	"github.com/predohenr/mergiraf/internal/settings"
)

// Stats accumulates rendering-time conflict metrics used to rank
// candidate merges (spec §4.7 "conflict_mass").
type Stats struct {
	ConflictCount int
	ConflictMass  int
}

// Render walks tree and produces its textual rendering plus conflict
// stats, under ds.
func Render(tree *mergedtree.Node, ds settings.DisplaySettings) (string, Stats) {
	var sb strings.Builder
	var stats Stats
	renderNode(&sb, &stats, tree, ds)
	return sb.String(), stats
}

func renderNode(sb *strings.Builder, stats *Stats, n *mergedtree.Node, ds settings.DisplaySettings) {
	switch n.Kind {
	case mergedtree.ExactTree:
		sb.Write(exactContent(n))
	case mergedtree.MixedTree:
		renderMixed(sb, stats, n, ds)
	case mergedtree.Conflict:
		renderConflict(sb, stats, n, ds)
	}
}

// revisionPreference picks which member of an ExactTree's revision set to
// copy bytes from: Base first (most likely to carry the canonical
// formatting), then Left, then Right.
var revisionPreference = [...]ast.Revision{ast.Base, ast.Left, ast.Right}

func exactContent(n *mergedtree.Node) []byte {
	present := make(map[ast.Revision]bool, len(n.RevSet))
	for _, r := range n.RevSet {
		present[r] = true
	}
	for _, r := range revisionPreference {
		if present[r] {
			node, ok := n.Leader.NodeAt(r)
			if ok {
				return node.Content()
			}
		}
	}
	return nil
}

func renderMixed(sb *strings.Builder, stats *Stats, n *mergedtree.Node, ds settings.DisplaySettings) {
	refRev, refNode := referenceNode(n.Leader)
	childIndex := make(map[*ast.Node]int)
	if refNode != nil {
		for i, c := range refNode.Children {
			childIndex[c] = i
		}
	}
	fallback := fallbackGap(refNode)

	for i, child := range n.Children {
		renderNode(sb, stats, child, ds)
		if i == len(n.Children)-1 {
			continue
		}
		sb.Write(separatorBetween(child.Leader, n.Children[i+1].Leader, refRev, childIndex, fallback))
	}
}

// referenceNode picks the revision to infer child-separator whitespace
// from: Base if present, else Left (spec §4.6 "MixedTree").
func referenceNode(leader *classmap.Leader) (ast.Revision, *ast.Node) {
	if n, ok := leader.NodeAt(ast.Base); ok {
		return ast.Base, n
	}
	if n, ok := leader.NodeAt(ast.Left); ok {
		return ast.Left, n
	}
	if n, ok := leader.NodeAt(ast.Right); ok {
		return ast.Right, n
	}
	return ast.Base, nil
}

// fallbackGap is used for a sibling pair that wasn't adjacent (or wasn't
// even both present) in the reference revision, e.g. a boundary created
// by an insertion. It reuses the first known internal gap of the
// reference node as a template for that parent's typical separator
// style, defaulting to a newline for a parent with no internal gap to
// sample from.
func fallbackGap(refNode *ast.Node) []byte {
	if refNode != nil && len(refNode.Children) >= 2 {
		return refNode.Children[0].Gap(refNode.Children[1])
	}
	return []byte("\n")
}

func separatorBetween(
	cur, next *classmap.Leader,
	refRev ast.Revision,
	childIndex map[*ast.Node]int,
	fallback []byte,
) []byte {
	if cur == nil || next == nil {
		return fallback
	}
	curNode, ok1 := cur.NodeAt(refRev)
	nextNode, ok2 := next.NodeAt(refRev)
	if !ok1 || !ok2 {
		return fallback
	}
	ci, present1 := childIndex[curNode]
	ni, present2 := childIndex[nextNode]
	if present1 && present2 && ni == ci+1 {
		return curNode.Gap(nextNode)
	}
	return fallback
}

func renderConflict(sb *strings.Builder, stats *Stats, n *mergedtree.Node, ds settings.DisplaySettings) {
	if ds.Compact {
		renderConflictCompact(sb, stats, n, ds)
		return
	}

	start := sb.Len()
	size := ds.EffectiveMarkerSize()

	sb.WriteString(strings.Repeat("<", size))
	sb.WriteString(" ")
	sb.WriteString(ds.LeftName)
	sb.WriteString("\n")
	sb.Write(renderSeq(n.LeftSeq))

	if ds.Diff3 && len(n.BaseSeq) > 0 {
		sb.WriteString(strings.Repeat("|", size))
		sb.WriteString(" ")
		sb.WriteString(ds.BaseName)
		sb.WriteString("\n")
		sb.Write(renderSeq(n.BaseSeq))
	}

	sb.WriteString(strings.Repeat("=", size))
	sb.WriteString("\n")
	sb.Write(renderSeq(n.RightSeq))

	sb.WriteString(strings.Repeat(">", size))
	sb.WriteString(" ")
	sb.WriteString(ds.RightName)
	sb.WriteString("\n")

	stats.ConflictCount++
	stats.ConflictMass += sb.Len() - start
}

// renderConflictCompact implements `--compact` (spec.md "Display compact
// conflicts, breaking down lines"): lines shared by every revision at the
// very start or end of a conflict are pulled out of the marker block and
// written once, plainly, the way Git's zdiff3 conflict style trims a
// hunk's common context instead of repeating it on every side.
func renderConflictCompact(sb *strings.Builder, stats *Stats, n *mergedtree.Node, ds settings.DisplaySettings) {
	size := ds.EffectiveMarkerSize()
	leftLines := splitLines(string(rawSeq(n.LeftSeq)))
	rightLines := splitLines(string(rawSeq(n.RightSeq)))
	includeBase := ds.Diff3 && len(n.BaseSeq) > 0
	var baseLines []string
	if includeBase {
		baseLines = splitLines(string(rawSeq(n.BaseSeq)))
	}

	sets := [][]string{leftLines, rightLines}
	if includeBase {
		sets = append(sets, baseLines)
	}

	prefixLen := commonPrefixLen(sets)
	trimmed := make([][]string, len(sets))
	for i, s := range sets {
		trimmed[i] = s[prefixLen:]
	}
	reversed := make([][]string, len(trimmed))
	for i, s := range trimmed {
		reversed[i] = reverseLines(s)
	}
	suffixLen := commonPrefixLen(reversed)

	sb.WriteString(strings.Join(leftLines[:prefixLen], ""))

	start := sb.Len()
	sb.WriteString(strings.Repeat("<", size))
	sb.WriteString(" ")
	sb.WriteString(ds.LeftName)
	sb.WriteString("\n")
	sb.WriteString(strings.Join(leftLines[prefixLen:len(leftLines)-suffixLen], ""))

	if includeBase {
		sb.WriteString(strings.Repeat("|", size))
		sb.WriteString(" ")
		sb.WriteString(ds.BaseName)
		sb.WriteString("\n")
		sb.WriteString(strings.Join(baseLines[prefixLen:len(baseLines)-suffixLen], ""))
	}

	sb.WriteString(strings.Repeat("=", size))
	sb.WriteString("\n")
	sb.WriteString(strings.Join(rightLines[prefixLen:len(rightLines)-suffixLen], ""))

	sb.WriteString(strings.Repeat(">", size))
	sb.WriteString(" ")
	sb.WriteString(ds.RightName)
	sb.WriteString("\n")

	stats.ConflictCount++
	stats.ConflictMass += sb.Len() - start

	sb.WriteString(strings.Join(leftLines[len(leftLines)-suffixLen:], ""))
}

// commonPrefixLen returns how many leading elements every slice in sets
// shares in common (0 if sets is empty).
func commonPrefixLen(sets [][]string) int {
	if len(sets) == 0 {
		return 0
	}
	minLen := len(sets[0])
	for _, s := range sets[1:] {
		if len(s) < minLen {
			minLen = len(s)
		}
	}
	n := 0
	for n < minLen {
		line := sets[0][n]
		match := true
		for _, s := range sets[1:] {
			if s[n] != line {
				match = false
				break
			}
		}
		if !match {
			break
		}
		n++
	}
	return n
}

func reverseLines(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

// splitLines breaks s into lines, each still carrying its trailing "\n"
// (the same convention internal/linemerge uses), without a trailing empty
// fragment.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// rawSeq concatenates a conflict sequence's node contents and inter-node
// gaps, without renderSeq's trailing newline - the form renderConflictCompact
// needs to split back into comparable lines.
func rawSeq(seq []*ast.Node) []byte {
	if len(seq) == 0 {
		return nil
	}
	var sb strings.Builder
	for i, n := range seq {
		sb.Write(n.Content())
		if i < len(seq)-1 {
			sb.Write(n.Gap(seq[i+1]))
		}
	}
	return []byte(sb.String())
}

func renderSeq(seq []*ast.Node) []byte {
	raw := rawSeq(seq)
	if raw == nil {
		return nil
	}
	return append(raw, '\n')
}
