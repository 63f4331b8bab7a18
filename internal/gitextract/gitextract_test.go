package gitextract

import (
	"testing"

	"github.com/go-git/go-git/v5"
)

func TestOpenRepository_MissingRepoReturnsError(t *testing.T) {
	if _, err := OpenRepository(t.TempDir()); err == nil {
		t.Error("expected an error opening a directory with no .git")
	}
}

func TestExtractConflictStages_NoEntriesReturnsError(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("git.PlainInit: %v", err)
	}

	if _, err := ExtractConflictStages(repo, "nonexistent.go"); err == nil {
		t.Error("expected an error for a path with no unmerged index stages")
	}
}
