package linemerge

import (
	"strings"
	"testing"

	"github.com/predohenr/mergiraf/internal/settings"
)

func TestMerge_UnchangedLinesRoundTrip(t *testing.T) {
	src := "a\nb\nc\n"
	got := Merge(src, src, src, settings.DefaultDisplaySettings())
	if got.Contents != src {
		t.Errorf("expected round-trip, got %q", got.Contents)
	}
	if got.ConflictCount != 0 {
		t.Errorf("expected no conflicts, got %d", got.ConflictCount)
	}
}

func TestMerge_NonOverlappingEditsBothSurvive(t *testing.T) {
	base := "one\ntwo\nthree\nfour\nfive\n"
	left := "one\nTWO\nthree\nfour\nfive\n"
	right := "one\ntwo\nthree\nFOUR\nfive\n"

	got := Merge(base, left, right, settings.DefaultDisplaySettings())
	if got.ConflictCount != 0 {
		t.Errorf("expected no conflicts for disjoint edits, got %d: %s", got.ConflictCount, got.Contents)
	}
	if !strings.Contains(got.Contents, "TWO") || !strings.Contains(got.Contents, "FOUR") {
		t.Errorf("expected both edits present, got %q", got.Contents)
	}
}

func TestMerge_ConflictingEditsProduceMarkers(t *testing.T) {
	base := "one\ntwo\nthree\n"
	left := "one\nTWO-LEFT\nthree\n"
	right := "one\nTWO-RIGHT\nthree\n"

	ds := settings.DefaultDisplaySettings()
	got := Merge(base, left, right, ds)
	if got.ConflictCount != 1 {
		t.Fatalf("expected one conflict, got %d: %s", got.ConflictCount, got.Contents)
	}
	if !strings.Contains(got.Contents, "TWO-LEFT") || !strings.Contains(got.Contents, "TWO-RIGHT") {
		t.Errorf("expected both conflicting variants present, got %q", got.Contents)
	}
	if got.ConflictMass <= 0 {
		t.Errorf("expected positive conflict mass, got %d", got.ConflictMass)
	}
}

func TestMerge_IdenticalEditOnBothSidesIsNotAConflict(t *testing.T) {
	base := "one\ntwo\nthree\n"
	left := "one\nCHANGED\nthree\n"
	right := "one\nCHANGED\nthree\n"

	got := Merge(base, left, right, settings.DefaultDisplaySettings())
	if got.ConflictCount != 0 {
		t.Errorf("expected convergent edit to produce no conflict, got %d: %s", got.ConflictCount, got.Contents)
	}
	if !strings.Contains(got.Contents, "CHANGED") {
		t.Errorf("expected the converged line present, got %q", got.Contents)
	}
}

func TestMerge_Diff3FalseOmitsBaseSpan(t *testing.T) {
	base := "one\ntwo\nthree\n"
	left := "one\nTWO-LEFT\nthree\n"
	right := "one\nTWO-RIGHT\nthree\n"

	ds := settings.DefaultDisplaySettings()
	ds.Diff3 = false
	got := Merge(base, left, right, ds)
	if strings.Contains(got.Contents, "|||||||") {
		t.Errorf("expected no base span in non-diff3 mode, got %q", got.Contents)
	}
}
