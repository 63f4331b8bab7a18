package pipeline

import (
	"strings"
	"time"

	"github.com/predohenr/mergiraf/internal/lang"
	"github.com/predohenr/mergiraf/internal/settings"
)

// ProjectConflictMarkers reconstructs per-revision content from a file
// that already carries diff3-or-merge-style conflict markers, by
// copying unmarked lines into all three revisions and marked sections
// into the revision they belong to (spec §4.7, strategy 1 "structured
// -in-place"). It handles one marker level only: nested conflicts (a
// conflict block inside another) are not unwound.
func ProjectConflictMarkers(content string, ds settings.DisplaySettings) (base, left, right string, ok bool) {
	size := ds.EffectiveMarkerSize()
	leftMarker := strings.Repeat("<", size)
	baseMarker := strings.Repeat("|", size)
	sepMarker := strings.Repeat("=", size)
	rightMarker := strings.Repeat(">", size)

	const (
		normal = iota
		inLeft
		inBase
		inRight
	)
	state := normal

	var baseSB, leftSB, rightSB strings.Builder
	found := false

	lines := strings.SplitAfter(content, "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		trimmed := strings.TrimRight(line, "\n")
		switch {
		case state == normal && strings.HasPrefix(trimmed, leftMarker):
			state = inLeft
			found = true
			continue
		case state == inLeft && strings.HasPrefix(trimmed, baseMarker):
			state = inBase
			continue
		case (state == inLeft || state == inBase) && strings.HasPrefix(trimmed, sepMarker):
			state = inRight
			continue
		case state == inRight && strings.HasPrefix(trimmed, rightMarker):
			state = normal
			continue
		}

		switch state {
		case normal:
			baseSB.WriteString(line)
			leftSB.WriteString(line)
			rightSB.WriteString(line)
		case inLeft:
			leftSB.WriteString(line)
		case inBase:
			baseSB.WriteString(line)
		case inRight:
			rightSB.WriteString(line)
		}
	}

	if !found {
		return "", "", "", false
	}
	return baseSB.String(), leftSB.String(), rightSB.String(), true
}

// ResolveConflicted implements the full cascading driver (spec §4.7) for
// the `solve` command, which starts from a file that already carries
// conflict markers: it tries structured-in-place first, then structured
// merge on the caller-supplied original revisions (if available), then
// the line-based fallback, and picks the best per the same selection
// policy ResolveCascading uses.
func ResolveConflicted(
	content []byte,
	origBase, origLeft, origRight []byte,
	haveOriginal bool,
	profile *lang.Profile,
	ds settings.DisplaySettings,
	ms settings.MatcherSettings,
	timeout time.Duration,
) *MergeResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var candidates []*MergeResult

	projBase, projLeft, projRight, ok := ProjectConflictMarkers(string(content), ds)
	if ok {
		if r := runStructuredWithTimeout([]byte(projBase), []byte(projLeft), []byte(projRight), profile, ds, ms, timeout); r != nil {
			r.Method = MethodStructuredInPlace
			if r.ConflictCount == 0 {
				return r
			}
			candidates = append(candidates, r)
		}
	}

	if haveOriginal {
		if r := runStructuredWithTimeout(origBase, origLeft, origRight, profile, ds, ms, timeout); r != nil {
			candidates = append(candidates, r)
		}
	}

	lineBase, lineLeft, lineRight := origBase, origLeft, origRight
	if !haveOriginal && ok {
		lineBase, lineLeft, lineRight = []byte(projBase), []byte(projLeft), []byte(projRight)
	}
	if haveOriginal || ok {
		candidates = append(candidates, LineBasedMerge(lineBase, lineLeft, lineRight, profile, ds))
	}

	if len(candidates) == 0 {
		conflictCount := 0
		if ok {
			conflictCount = 1
		}
		return &MergeResult{Contents: string(content), ConflictCount: conflictCount, Method: MethodTrivial}
	}
	return selectBest(candidates, lineBase, lineLeft, lineRight, ds)
}

func runStructuredWithTimeout(base, left, right []byte, profile *lang.Profile, ds settings.DisplaySettings, ms settings.MatcherSettings, timeout time.Duration) *MergeResult {
	resultCh := make(chan *MergeResult, 1)
	go func() {
		r, err := StructuredMerge(base, left, right, profile, ds, ms)
		if err != nil {
			resultCh <- nil
			return
		}
		resultCh <- r
	}()
	select {
	case r := <-resultCh:
		return r
	case <-time.After(timeout):
		return nil
	}
}
