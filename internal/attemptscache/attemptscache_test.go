package attemptscache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewAttempt_CreatesFolderAndRow(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	id, dir, err := c.NewAttempt("/repo/main.go")
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected attempt dir to exist: %v", err)
	}

	a, err := c.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a.Path != "/repo/main.go" {
		t.Errorf("expected path recorded, got %q", a.Path)
	}
}

func TestStoreFileAndMarkBest(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	id, dir, err := c.NewAttempt("main.go")
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}
	if err := c.StoreFile(dir, "structured.merged", []byte("package p\n")); err != nil {
		t.Fatalf("StoreFile: %v", err)
	}
	if err := c.MarkBest(id, dir, "structured", true); err != nil {
		t.Fatalf("MarkBest: %v", err)
	}

	best, err := os.ReadFile(filepath.Join(dir, "best"))
	if err != nil {
		t.Fatalf("reading best pointer: %v", err)
	}
	if string(best) != "structured" {
		t.Errorf("expected best pointer to name the method, got %q", best)
	}

	a, err := c.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a.BestMethod != "structured" || !a.HasAdditionalIssues {
		t.Errorf("expected indexed best method and issues flag, got %+v", a)
	}
}

func TestList_ReturnsAllAttempts(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if _, _, err := c.NewAttempt("a.go"); err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}
	if _, _, err := c.NewAttempt("b.go"); err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}

	attempts, err := c.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(attempts) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(attempts))
	}
}

func TestGet_UnknownIDReturnsError(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if _, err := c.Get("does-not-exist"); err == nil {
		t.Error("expected an error for an unknown attempt id")
	}
}
