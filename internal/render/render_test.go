package render

import (
	"context"
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/predohenr/mergiraf/internal/ast"
	"github.com/predohenr/mergiraf/internal/classmap"
	"github.com/predohenr/mergiraf/internal/lang"
	"github.com/predohenr/mergiraf/internal/matcher"
	"github.com/predohenr/mergiraf/internal/mergedtree"
	"github.com/predohenr/mergiraf/internal/pcs"
	"github.com/predohenr/mergiraf/internal/settings"
)

func parseGo(t *testing.T, src string) *ast.Node {
	t.Helper()
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	profile, _ := lang.ByName("go")
	arena := ast.NewArena()
	root, err := ast.Build(tree, []byte(src), profile, arena)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return root
}

func mergeAndRender(t *testing.T, base, left, right *ast.Node, ds settings.DisplaySettings) (string, Stats) {
	t.Helper()
	bl := matcher.Match(base, left, matcher.Primary)
	br := matcher.Match(base, right, matcher.Primary)
	lr := matcher.Match(left, right, matcher.Auxiliary)
	cm, err := classmap.Build(base, left, right, bl, br, lr)
	if err != nil {
		t.Fatalf("classmap.Build: %v", err)
	}
	baseSet := pcs.Build(base, ast.Base, cm)
	leftSet := pcs.Build(left, ast.Left, cm)
	rightSet := pcs.Build(right, ast.Right, cm)
	merged := pcs.Index(pcs.Merge(baseSet, leftSet, rightSet))
	rootLeader := cm.MapToLeader(ast.RevNode{Revision: ast.Base, Node: base})
	prof, _ := lang.ByName("go")
	tree := mergedtree.Build(cm, prof, merged, rootLeader)
	return Render(tree, ds)
}

func TestRender_UnchangedFileRoundTrips(t *testing.T) {
	src := "package p\n\nfunc a() {}\n"
	base := parseGo(t, src)
	left := parseGo(t, src)
	right := parseGo(t, src)

	got, stats := mergeAndRender(t, base, left, right, settings.DefaultDisplaySettings())
	if got != src {
		t.Errorf("expected round-trip of unchanged source, got %q", got)
	}
	if stats.ConflictCount != 0 {
		t.Errorf("expected no conflicts, got %d", stats.ConflictCount)
	}
}

func TestRender_OneSidedAdditionIncludesBothFunctions(t *testing.T) {
	base := parseGo(t, "package p\nfunc a() {}\n")
	left := parseGo(t, "package p\nfunc a() {}\nfunc b() {}\n")
	right := parseGo(t, "package p\nfunc a() {}\n")

	got, _ := mergeAndRender(t, base, left, right, settings.DefaultDisplaySettings())
	if !strings.Contains(got, "func a()") || !strings.Contains(got, "func b()") {
		t.Errorf("expected both functions in output, got %q", got)
	}
}

func TestRender_ConflictUsesConfiguredMarkerSize(t *testing.T) {
	ds := settings.DefaultDisplaySettings()
	ds.MarkerSize = 5
	ds.LeftName = "mine"
	ds.RightName = "theirs"

	n := &mergedtree.Node{
		Kind:     mergedtree.Conflict,
		LeftSeq:  nil,
		BaseSeq:  nil,
		RightSeq: nil,
	}
	got, stats := Render(n, ds)
	if !strings.HasPrefix(got, "<<<<< mine\n") {
		t.Errorf("expected a 5-char left marker with the configured name, got %q", got)
	}
	if !strings.Contains(got, "===== \n") && !strings.Contains(got, "=====\n") {
		t.Errorf("expected a 5-char separator marker, got %q", got)
	}
	if !strings.Contains(got, ">>>>> theirs\n") {
		t.Errorf("expected a 5-char right marker with the configured name, got %q", got)
	}
	if stats.ConflictCount != 1 {
		t.Errorf("expected one conflict counted, got %d", stats.ConflictCount)
	}
}

func TestRender_CompactTrimsSharedLeadingAndTrailingLines(t *testing.T) {
	left := parseGo(t, "package p\n\nfunc shared1() {}\n\nfunc middle() { left() }\n\nfunc shared2() {}\n")
	base := parseGo(t, "package p\n\nfunc shared1() {}\n\nfunc middle() {}\n\nfunc shared2() {}\n")
	right := parseGo(t, "package p\n\nfunc shared1() {}\n\nfunc middle() { right() }\n\nfunc shared2() {}\n")

	n := &mergedtree.Node{
		Kind:     mergedtree.Conflict,
		LeftSeq:  left.Children[1:],
		BaseSeq:  base.Children[1:],
		RightSeq: right.Children[1:],
	}

	plainDS := settings.DefaultDisplaySettings()
	plainDS.Diff3 = true
	gotPlain, statsPlain := Render(n, plainDS)
	if strings.Count(gotPlain, "func shared1() {}") != 3 {
		t.Fatalf("expected the plain rendering to repeat the shared function in every revision, got %q", gotPlain)
	}

	compactDS := plainDS
	compactDS.Compact = true
	gotCompact, statsCompact := Render(n, compactDS)

	if strings.Count(gotCompact, "func shared1() {}") != 1 {
		t.Errorf("expected the shared leading function to appear once, got %q", gotCompact)
	}
	if strings.Count(gotCompact, "func shared2() {}") != 1 {
		t.Errorf("expected the shared trailing function to appear once, got %q", gotCompact)
	}
	if !strings.Contains(gotCompact, "left()") || !strings.Contains(gotCompact, "right()") {
		t.Errorf("expected both revisions' differing content inside the markers, got %q", gotCompact)
	}
	for _, marker := range []string{"<<<<<<<", "|||||||", "=======", ">>>>>>>"} {
		if !strings.Contains(gotCompact, marker) {
			t.Errorf("expected marker %q in compact output, got %q", marker, gotCompact)
		}
	}
	if statsCompact.ConflictMass >= statsPlain.ConflictMass {
		t.Errorf("expected compact rendering to shrink conflict mass, got compact=%d plain=%d", statsCompact.ConflictMass, statsPlain.ConflictMass)
	}
	if statsCompact.ConflictCount != 1 {
		t.Errorf("expected one conflict counted, got %d", statsCompact.ConflictCount)
	}
}
