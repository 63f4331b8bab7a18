// Package linemerge implements the line-based three-way merge fallback
// (spec §4.7, point 3): a diff3-style merger over Myers line diffs, used when
// structured merge isn't available or times out.
package linemerge

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/predohenr/mergiraf/internal/settings"
)

// Result is a line-based merge outcome.
type Result struct {
	Contents      string
	ConflictCount int
	ConflictMass  int
}

// Merge performs a three-way, line-granularity merge of base/left/right
// under ds, using two pairwise line diffs (base→left, base→right)
// combined the way GNU diff3 combines them: unchanged base lines are
// copied through, a region touched by only one side takes that side's
// text, and a region where both sides made a different change becomes a
// conflict.
func Merge(base, left, right string, ds settings.DisplaySettings) Result {
	baseLines := splitLines(base)
	leftChanges := computeChanges(base, left)
	rightChanges := computeChanges(base, right)

	clusters := clusterChanges(leftChanges, rightChanges)

	var sb strings.Builder
	var stats Result
	pos := 0
	for _, cl := range clusters {
		writeLines(&sb, baseLines[pos:cl.baseStart])
		pos = cl.baseEnd

		switch {
		case len(cl.left) == 0:
			writeLines(&sb, cl.right)
		case len(cl.right) == 0:
			writeLines(&sb, cl.left)
		case equalLines(cl.left, cl.right):
			writeLines(&sb, cl.left)
		default:
			writeConflict(&sb, &stats, ds, baseLines[cl.baseStart:cl.baseEnd], cl.left, cl.right)
		}
	}
	writeLines(&sb, baseLines[pos:])

	return Result{Contents: sb.String(), ConflictCount: stats.ConflictCount, ConflictMass: stats.ConflictMass}
}

func writeLines(sb *strings.Builder, lines []string) {
	for _, l := range lines {
		sb.WriteString(l)
	}
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func writeConflict(sb *strings.Builder, stats *Result, ds settings.DisplaySettings, base, left, right []string) {
	start := sb.Len()
	size := ds.EffectiveMarkerSize()

	sb.WriteString(strings.Repeat("<", size))
	sb.WriteString(" ")
	sb.WriteString(ds.LeftName)
	sb.WriteString("\n")
	writeLines(sb, left)

	if ds.Diff3 {
		sb.WriteString(strings.Repeat("|", size))
		sb.WriteString(" ")
		sb.WriteString(ds.BaseName)
		sb.WriteString("\n")
		writeLines(sb, base)
	}

	sb.WriteString(strings.Repeat("=", size))
	sb.WriteString("\n")
	writeLines(sb, right)

	sb.WriteString(strings.Repeat(">", size))
	sb.WriteString(" ")
	sb.WriteString(ds.RightName)
	sb.WriteString("\n")

	stats.ConflictCount++
	stats.ConflictMass += sb.Len() - start
}

// splitLines splits s into lines, each keeping its trailing newline (if
// any), so re-joining the pieces losslessly reconstructs s.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// change is a contiguous base line range replaced by a (possibly empty,
// for a pure deletion) set of lines from one side.
type change struct {
	baseStart, baseEnd int
	lines              []string
}

// computeChanges diffs base against other line-by-line (via
// diffmatchpatch's line-mode hashing trick, the same idiom used
// elsewhere in the pack for textual diffing) and collapses adjacent
// delete/insert operations into single replace spans.
func computeChanges(base, other string) []change {
	dmp := diffmatchpatch.New()
	c1, c2, lineArray := dmp.DiffLinesToChars(base, other)
	diffs := dmp.DiffMain(c1, c2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var changes []change
	posBase := 0
	var pendingBaseLines int
	var pendingOther []string
	pendingActive := false

	flush := func() {
		if pendingActive {
			changes = append(changes, change{
				baseStart: posBase - pendingBaseLines,
				baseEnd:   posBase,
				lines:     pendingOther,
			})
			pendingActive = false
			pendingBaseLines = 0
			pendingOther = nil
		}
	}

	for _, d := range diffs {
		ls := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			posBase += len(ls)
		case diffmatchpatch.DiffDelete:
			pendingActive = true
			pendingBaseLines += len(ls)
			posBase += len(ls)
		case diffmatchpatch.DiffInsert:
			pendingActive = true
			pendingOther = append(pendingOther, ls...)
		}
	}
	flush()
	return changes
}

type taggedChange struct {
	change
	left bool
}

type cluster struct {
	baseStart, baseEnd int
	left, right        []string
}

// overlaps reports whether two changes touch the same base line range.
// A pure insertion (an empty base range) only conflicts with another
// pure insertion landing at the exact same point; it never conflicts
// with an unrelated replace/delete range next to it. This is a
// deliberate simplification (see DESIGN.md).
func overlaps(a, b change) bool {
	if a.baseStart == a.baseEnd || b.baseStart == b.baseEnd {
		return a.baseStart == b.baseStart && a.baseEnd == b.baseEnd
	}
	return a.baseStart < b.baseEnd && b.baseStart < a.baseEnd
}

// clusterChanges groups overlapping left/right changes together and
// resolves or conflicts each group, in base-line order.
func clusterChanges(leftChanges, rightChanges []change) []cluster {
	all := make([]taggedChange, 0, len(leftChanges)+len(rightChanges))
	for _, c := range leftChanges {
		all = append(all, taggedChange{change: c, left: true})
	}
	for _, c := range rightChanges {
		all = append(all, taggedChange{change: c, left: false})
	}
	sortTaggedChanges(all)

	var clusters []cluster
	var curLeft, curRight []taggedChange
	var curStart, curEnd int
	active := false

	flush := func() {
		if !active {
			return
		}
		cl := cluster{baseStart: curStart, baseEnd: curEnd}
		for _, c := range curLeft {
			cl.left = append(cl.left, c.lines...)
		}
		for _, c := range curRight {
			cl.right = append(cl.right, c.lines...)
		}
		clusters = append(clusters, cl)
		curLeft, curRight = nil, nil
		active = false
	}

	for _, tc := range all {
		bounds := change{baseStart: curStart, baseEnd: curEnd}
		if active && overlaps(bounds, tc.change) {
			if tc.change.baseEnd > curEnd {
				curEnd = tc.change.baseEnd
			}
		} else {
			flush()
			curStart, curEnd = tc.baseStart, tc.baseEnd
			active = true
		}
		if tc.left {
			curLeft = append(curLeft, tc)
		} else {
			curRight = append(curRight, tc)
		}
	}
	flush()
	return clusters
}

func sortTaggedChanges(cs []taggedChange) {
	for i := 1; i < len(cs); i++ {
		j := i
		for j > 0 && (cs[j-1].baseStart > cs[j].baseStart ||
			(cs[j-1].baseStart == cs[j].baseStart && cs[j-1].baseEnd > cs[j].baseEnd)) {
			cs[j-1], cs[j] = cs[j], cs[j-1]
			j--
		}
	}
}
