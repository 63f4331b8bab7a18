package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd should not be nil")
	}
	if rootCmd.Use != "mergiraf" {
		t.Errorf("expected Use %q, got %q", "mergiraf", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("Short description should not be empty")
	}
}

func TestMergeCommand_Configuration(t *testing.T) {
	if mergeCmd == nil {
		t.Fatal("mergeCmd should not be nil")
	}
	if mergeCmd.RunE == nil {
		t.Error("RunE should not be nil")
	}
	for _, name := range []string{"fast", "compact", "git", "output", "path-name", "base-name", "left-name", "right-name", "timeout"} {
		if mergeCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected merge to register --%s", name)
		}
	}
}

func TestSolveCommand_Configuration(t *testing.T) {
	for _, name := range []string{"compact", "keep"} {
		if solveCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected solve to register --%s", name)
		}
	}
}

func TestLanguagesCommand_Configuration(t *testing.T) {
	if languagesCmd.Flags().Lookup("gitattributes") == nil {
		t.Error("expected languages to register --gitattributes")
	}
}

func TestResolveRevisionName_FallsBackOnLegacyPlaceholder(t *testing.T) {
	got := resolveRevisionName("%S", "left")
	if got != "left" {
		t.Errorf("expected fallback to %q, got %q", "left", got)
	}
}

func TestResolveRevisionName_KeepsRealName(t *testing.T) {
	got := resolveRevisionName("feature-branch", "left")
	if got != "feature-branch" {
		t.Errorf("expected %q, got %q", "feature-branch", got)
	}
}

func TestMergirafDisabled_RespectsEnvVars(t *testing.T) {
	os.Unsetenv("mergiraf")
	os.Unsetenv("MERGIRAF_DISABLE")
	if mergirafDisabled() {
		t.Error("expected not disabled with no env vars set")
	}

	os.Setenv("mergiraf", "0")
	if !mergirafDisabled() {
		t.Error("expected disabled when mergiraf=0")
	}
	os.Unsetenv("mergiraf")

	os.Setenv("MERGIRAF_DISABLE", "1")
	if !mergirafDisabled() {
		t.Error("expected disabled when MERGIRAF_DISABLE is set")
	}
	os.Unsetenv("MERGIRAF_DISABLE")
}

func TestRunMerge_DisjointEditsResolveCleanly(t *testing.T) {
	exitCode = 0
	dir := t.TempDir()
	base := "package p\n\nfunc a() {}\n\nfunc b() {}\n"
	left := "package p\n\nfunc a() { x() }\n\nfunc b() {}\n"
	right := "package p\n\nfunc a() {}\n\nfunc b() { y() }\n"

	baseFile := filepath.Join(dir, "base.go")
	leftFile := filepath.Join(dir, "left.go")
	rightFile := filepath.Join(dir, "right.go")
	outFile := filepath.Join(dir, "out.go")
	if err := os.WriteFile(baseFile, []byte(base), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(leftFile, []byte(left), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(rightFile, []byte(right), 0o644); err != nil {
		t.Fatal(err)
	}

	mergeFast = false
	mergeOutput = outFile
	mergePathName = ""
	mergeCompact = false
	mergeGit = false
	mergeBaseName, mergeLeftName, mergeRightName = "", "", ""
	mergeTimeoutMS = 0
	t.Setenv("HOME", dir)

	if err := runMerge(mergeCmd, []string{baseFile, leftFile, rightFile}); err != nil {
		t.Fatalf("runMerge: %v", err)
	}

	out, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(out) == 0 {
		t.Error("expected non-empty merged output")
	}
}

func TestRunMerge_GitFlagOverwritesLeftFileWithoutOutput(t *testing.T) {
	exitCode = 0
	dir := t.TempDir()
	base := "package p\n\nfunc a() {}\n\nfunc b() {}\n"
	left := "package p\n\nfunc a() { x() }\n\nfunc b() {}\n"
	right := "package p\n\nfunc a() {}\n\nfunc b() { y() }\n"

	baseFile := filepath.Join(dir, "base.go")
	leftFile := filepath.Join(dir, "left.go")
	rightFile := filepath.Join(dir, "right.go")
	if err := os.WriteFile(baseFile, []byte(base), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(leftFile, []byte(left), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(rightFile, []byte(right), 0o644); err != nil {
		t.Fatal(err)
	}

	mergeFast = false
	mergeOutput = ""
	mergePathName = ""
	mergeCompact = false
	mergeGit = true
	mergeBaseName, mergeLeftName, mergeRightName = "", "", ""
	mergeTimeoutMS = 0
	t.Setenv("HOME", dir)

	if err := runMerge(mergeCmd, []string{baseFile, leftFile, rightFile}); err != nil {
		t.Fatalf("runMerge: %v", err)
	}
	mergeGit = false

	out, err := os.ReadFile(leftFile)
	if err != nil {
		t.Fatalf("reading left file: %v", err)
	}
	if !strings.Contains(string(out), "x()") || !strings.Contains(string(out), "y()") {
		t.Errorf("expected the left file to be overwritten with the merged result of both sides, got %q", out)
	}
}

func TestRunSolve_WritesBackupUnlessKeep(t *testing.T) {
	exitCode = 0
	dir := t.TempDir()
	conflicted := "<<<<<<< left\nx()\n=======\ny()\n>>>>>>> right\n"
	path := filepath.Join(dir, "conflict.go")
	if err := os.WriteFile(path, []byte(conflicted), 0o644); err != nil {
		t.Fatal(err)
	}

	solveKeep = false
	solveCompact = false
	t.Setenv("HOME", dir)

	if err := runSolve(solveCmd, []string{path}); err != nil {
		t.Fatalf("runSolve: %v", err)
	}

	if _, err := os.Stat(path + ".orig"); err != nil {
		t.Errorf("expected a .orig backup: %v", err)
	}
	backup, err := os.ReadFile(path + ".orig")
	if err != nil {
		t.Fatal(err)
	}
	if string(backup) != conflicted {
		t.Errorf("expected backup to hold the pre-resolution content, got %q", backup)
	}
}

func TestGatherReportFiles_FallsBackToPlainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", filepath.Join(dir, "does-not-exist"))

	files, out, err := gatherReportFiles(path)
	if err != nil {
		t.Fatalf("gatherReportFiles: %v", err)
	}
	if len(files) != 1 || files[0].Name != "a.txt" {
		t.Errorf("expected a single a.txt entry, got %+v", files)
	}
	if out == "" {
		t.Error("expected a non-empty output path")
	}
}
