package bugreport

import (
	"bytes"
	"testing"
)

func TestBuildExtract_RoundTrips(t *testing.T) {
	files := []File{
		{Name: "Base.go", Content: []byte("package p\n\nfunc a() {}\n")},
		{Name: "Left.go", Content: []byte("package p\n\nfunc a() { x() }\n")},
		{Name: "Right.go", Content: []byte("package p\n\nfunc a() {}\n")},
		{Name: "debug.txt", Content: []byte("structured merge: 1 conflict\n")},
	}

	bundle, err := Build(files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(bundle) == 0 {
		t.Fatal("expected a non-empty bundle")
	}

	got, err := Extract(bundle)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != len(files) {
		t.Fatalf("expected %d files, got %d", len(files), len(got))
	}
	for i, f := range files {
		if got[i].Name != f.Name {
			t.Errorf("entry %d: expected name %q, got %q", i, f.Name, got[i].Name)
		}
		if !bytes.Equal(got[i].Content, f.Content) {
			t.Errorf("entry %d (%s): content mismatch, got %q", i, f.Name, got[i].Content)
		}
	}
}

func TestExtract_RejectsGarbage(t *testing.T) {
	if _, err := Extract([]byte("not a zstd stream")); err == nil {
		t.Error("expected an error decoding garbage input")
	}
}
