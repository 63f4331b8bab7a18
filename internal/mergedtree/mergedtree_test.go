package mergedtree

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/predohenr/mergiraf/internal/ast"
	"github.com/predohenr/mergiraf/internal/classmap"
	"github.com/predohenr/mergiraf/internal/lang"
	"github.com/predohenr/mergiraf/internal/matcher"
	"github.com/predohenr/mergiraf/internal/pcs"
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

func parseJava(t *testing.T, src string) *ast.Node {
	t.Helper()
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	profile, _ := lang.ByName("java")
	arena := ast.NewArena()
	root, err := ast.Build(tree, []byte(src), profile, arena)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return root
}

func build(t *testing.T, base, left, right *ast.Node) (*classmap.ClassMapping, *classmap.Leader, *pcs.Result) {
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
	return cm, rootLeader, merged
}

func TestBuild_UnchangedFileIsExactTree(t *testing.T) {
	src := "package p\nfunc a() {}\n"
	base := parseGo(t, src)
	left := parseGo(t, src)
	right := parseGo(t, src)

	cm, rootLeader, merged := build(t, base, left, right)
	prof, _ := lang.ByName("go")
	tree := Build(cm, prof, merged, rootLeader)

	if tree.Kind != ExactTree {
		t.Errorf("expected ExactTree for an unchanged file, got %v", tree.Kind)
	}
}

func TestBuild_OneSidedAdditionProducesMixedTree(t *testing.T) {
	base := parseGo(t, "package p\nfunc a() {}\n")
	left := parseGo(t, "package p\nfunc a() {}\nfunc b() {}\n")
	right := parseGo(t, "package p\nfunc a() {}\n")

	cm, rootLeader, merged := build(t, base, left, right)
	prof, _ := lang.ByName("go")
	tree := Build(cm, prof, merged, rootLeader)

	if tree.Kind != MixedTree {
		t.Fatalf("expected MixedTree when one side adds a function, got %v", tree.Kind)
	}
	if len(tree.Children) < 2 {
		t.Errorf("expected both functions present in the merged children, got %d", len(tree.Children))
	}
}

func TestCheckDuplicateSignatures_NoFalsePositiveOnSingleFunction(t *testing.T) {
	src := "package p\nfunc a() {}\n"
	base := parseGo(t, src)
	left := parseGo(t, src)
	right := parseGo(t, src)

	cm, rootLeader, merged := build(t, base, left, right)
	prof, _ := lang.ByName("go")
	tree := Build(cm, prof, merged, rootLeader)

	if CheckDuplicateSignatures(tree, prof) {
		t.Error("did not expect a duplicate-signature flag for a single declaration")
	}
}

func TestCheckDuplicateSignatures_TruePositiveOnIndependentOverloadAdditions(t *testing.T) {
	base := parseJava(t, "class C{ void m(){} }\n")
	left := parseJava(t, "class C{ void m(){} void m(int x){} }\n")
	right := parseJava(t, "class C{ void m(){} void m(int y){} }\n")

	cm, rootLeader, merged := build(t, base, left, right)
	prof, _ := lang.ByName("java")
	tree := Build(cm, prof, merged, rootLeader)

	if !CheckDuplicateSignatures(tree, prof) {
		t.Error("expected a duplicate-signature flag when both sides independently add a same-shaped overload of m")
	}
}
