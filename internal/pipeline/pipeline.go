// Package pipeline wires parse, match, classmap, 3DM merge, mergedtree
// and render into one structured merge, and implements the cascading
// driver that falls back to a line-based merge when structured merge
// can't produce a usable result (spec §4.7, §5).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/predohenr/mergiraf/internal/ast"
	"github.com/predohenr/mergiraf/internal/classmap"
	"github.com/predohenr/mergiraf/internal/lang"
	"github.com/predohenr/mergiraf/internal/linemerge"
	"github.com/predohenr/mergiraf/internal/matcher"
	"github.com/predohenr/mergiraf/internal/mergedtree"
	"github.com/predohenr/mergiraf/internal/pcs"
	"github.com/predohenr/mergiraf/internal/render"
	"github.com/predohenr/mergiraf/internal/settings"
)

// Method names a MergeResult's producing strategy; their relative order
// here is also the deterministic tie-break the selection policy uses
// (spec §4.7 "Selection policy", point c).
const (
	MethodStructuredInPlace = "structured_in_place"
	MethodStructured        = "structured"
	MethodLineBased         = "line_based"
	MethodTrivial           = "trivial"
)

var methodOrder = map[string]int{
	MethodStructuredInPlace: 0,
	MethodStructured:        1,
	MethodLineBased:         2,
	MethodTrivial:           3,
}

// MergeResult is the outcome of one merge attempt (spec §4.7).
type MergeResult struct {
	Contents            string
	ConflictCount       int
	ConflictMass        int
	Method              string
	HasAdditionalIssues bool
}

// DefaultTimeout bounds how long the structured-merge worker is given
// before the driver abandons it and returns the line-based result
// (spec §5 "Cancellation").
const DefaultTimeout = 5 * time.Second

// StructuredMerge runs the full parse→match→classmap→3DM→mergedtree→
// render pipeline over the three revisions and returns a MergeResult
// with method "structured".
func StructuredMerge(base, left, right []byte, profile *lang.Profile, ds settings.DisplaySettings, ms settings.MatcherSettings) (*MergeResult, error) {
	arena := ast.NewArena()

	baseNode, err := parseWith(profile, base, ast.Base, arena)
	if err != nil {
		return nil, err
	}
	leftNode, err := parseWith(profile, left, ast.Left, arena)
	if err != nil {
		return nil, err
	}
	rightNode, err := parseWith(profile, right, ast.Right, arena)
	if err != nil {
		return nil, err
	}

	logrus.Debugf("structured merge: parsed %d nodes (%s)", arena.Len(), profile.Name)

	bl := matcher.Match(baseNode, leftNode, ms.Primary)
	br := matcher.Match(baseNode, rightNode, ms.Primary)
	lr := matcher.Match(leftNode, rightNode, ms.Auxiliary)

	cm, err := classmap.Build(baseNode, leftNode, rightNode, bl, br, lr)
	if err != nil {
		return nil, fmt.Errorf("class mapping: %w", err)
	}

	baseSet := pcs.Build(baseNode, ast.Base, cm)
	leftSet := pcs.Build(leftNode, ast.Left, cm)
	rightSet := pcs.Build(rightNode, ast.Right, cm)
	merged := pcs.Index(pcs.Merge(baseSet, leftSet, rightSet))

	rootLeader := cm.MapToLeader(ast.RevNode{Revision: ast.Base, Node: baseNode})
	tree := mergedtree.Build(cm, profile, merged, rootLeader)

	contents, stats := render.Render(tree, ds)
	hasIssues := mergedtree.CheckDuplicateSignatures(tree, profile)

	return &MergeResult{
		Contents:            contents,
		ConflictCount:       stats.ConflictCount,
		ConflictMass:        stats.ConflictMass,
		Method:              MethodStructured,
		HasAdditionalIssues: hasIssues,
	}, nil
}

func parseWith(profile *lang.Profile, src []byte, rev ast.Revision, arena *ast.Arena) (*ast.Node, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(profile.Grammar)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s revision: %w", rev, err)
	}
	node, err := ast.Build(tree, src, profile, arena)
	if err != nil {
		var pe *ast.ParseError
		if errors.As(err, &pe) {
			pe.Revision = rev
		}
		return nil, err
	}
	return node, nil
}

// LineBasedMerge runs the diff3-style line-based fallback and re-checks
// the result for duplicate signatures even though it reports zero
// conflicts (supplemented feature: line-based results get the same
// signature post-check as structured ones).
func LineBasedMerge(base, left, right []byte, profile *lang.Profile, ds settings.DisplaySettings) *MergeResult {
	r := linemerge.Merge(string(base), string(left), string(right), ds)

	hasIssues := false
	if r.ConflictCount == 0 && profile != nil && profile.SignatureExtractor != nil {
		hasIssues = reparseAndCheckSignatures(r.Contents, profile)
	}

	return &MergeResult{
		Contents:            r.Contents,
		ConflictCount:       r.ConflictCount,
		ConflictMass:        r.ConflictMass,
		Method:              MethodLineBased,
		HasAdditionalIssues: hasIssues,
	}
}

func reparseAndCheckSignatures(contents string, profile *lang.Profile) bool {
	parser := sitter.NewParser()
	parser.SetLanguage(profile.Grammar)
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(contents))
	if err != nil {
		return false
	}
	arena := ast.NewArena()
	root, err := ast.Build(tree, []byte(contents), profile, arena)
	if err != nil {
		return false
	}
	return hasDuplicateSignatures(root, profile)
}

// hasDuplicateSignatures walks a plain (non-merged) AST looking for
// sibling declarations whose erased signature collides - the same check
// mergedtree.CheckDuplicateSignatures applies to a MixedTree, applied
// here directly to a flat tree instead.
func hasDuplicateSignatures(n *ast.Node, profile *lang.Profile) bool {
	seen := make(map[string]bool)
	for _, c := range n.Children {
		sig := profile.SignatureExtractor(c)
		if sig != "" {
			if seen[sig] {
				return true
			}
			seen[sig] = true
		}
	}
	for _, c := range n.Children {
		if hasDuplicateSignatures(c, profile) {
			return true
		}
	}
	return false
}

// trivialResult wraps the whole of left, base (in diff3 mode only) and
// right in one new whole-file conflict span. It is the result of last
// resort, returned only when no other strategy produced anything (spec
// §4.7 "Selection policy").
func trivialResult(base, left, right []byte, ds settings.DisplaySettings) *MergeResult {
	var contents string
	size := ds.EffectiveMarkerSize()
	marker := func(ch byte, suffix string) string {
		b := make([]byte, size)
		for i := range b {
			b[i] = ch
		}
		s := string(b)
		if suffix != "" {
			s += " " + suffix
		}
		return s + "\n"
	}
	contents += marker('<', ds.LeftName) + string(left)
	if ds.Diff3 {
		contents += marker('|', ds.BaseName) + string(base)
	}
	contents += marker('=', "") + string(right)
	contents += marker('>', ds.RightName)

	return &MergeResult{
		Contents:            contents,
		ConflictCount:       1,
		ConflictMass:        len(contents),
		Method:              MethodTrivial,
		HasAdditionalIssues: false,
	}
}

// ResolveCascading runs the driver described in spec §4.7: structured
// merge on a worker goroutine bounded by timeout, a line-based merge
// computed unconditionally as a safety net, and a selection between
// whichever attempts actually produced a MergeResult.
func ResolveCascading(base, left, right []byte, profile *lang.Profile, ds settings.DisplaySettings, ms settings.MatcherSettings, timeout time.Duration) *MergeResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	resultCh := make(chan *MergeResult, 1)
	go func() {
		r, err := StructuredMerge(base, left, right, profile, ds, ms)
		if err != nil {
			logrus.Debugf("structured merge failed: %v", err)
			resultCh <- nil
			return
		}
		resultCh <- r
	}()

	var candidates []*MergeResult
	select {
	case r := <-resultCh:
		if r != nil {
			candidates = append(candidates, r)
		}
	case <-time.After(timeout):
		logrus.Debugf("structured merge timed out after %s, falling back to line-based", timeout)
	}

	candidates = append(candidates, LineBasedMerge(base, left, right, profile, ds))

	return selectBest(candidates, base, left, right, ds)
}

// selectBest implements spec §4.7's ranking: prefer no additional
// issues, then ascending conflict mass, then method order. The trivial
// whole-file conflict is only synthesized if nothing else is available.
func selectBest(candidates []*MergeResult, base, left, right []byte, ds settings.DisplaySettings) *MergeResult {
	if len(candidates) == 0 {
		return trivialResult(base, left, right, ds)
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best) {
			best = c
		}
	}
	return best
}

func better(a, b *MergeResult) bool {
	if a.HasAdditionalIssues != b.HasAdditionalIssues {
		return !a.HasAdditionalIssues
	}
	if a.ConflictMass != b.ConflictMass {
		return a.ConflictMass < b.ConflictMass
	}
	return methodOrder[a.Method] < methodOrder[b.Method]
}
