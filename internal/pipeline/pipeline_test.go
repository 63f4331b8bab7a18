package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/predohenr/mergiraf/internal/lang"
	"github.com/predohenr/mergiraf/internal/settings"
)

func goProfile(t *testing.T) *lang.Profile {
	t.Helper()
	p, ok := lang.ByName("go")
	if !ok {
		t.Fatal("go profile not registered")
	}
	return p
}

func TestStructuredMerge_UnchangedFileRoundTrips(t *testing.T) {
	src := []byte("package p\n\nfunc a() {}\n")
	profile := goProfile(t)
	ms := settings.DefaultMatcherSettings()

	r, err := StructuredMerge(src, src, src, profile, settings.DefaultDisplaySettings(), ms)
	if err != nil {
		t.Fatalf("StructuredMerge: %v", err)
	}
	if r.Contents != string(src) {
		t.Errorf("expected round-trip, got %q", r.Contents)
	}
	if r.ConflictCount != 0 || r.HasAdditionalIssues {
		t.Errorf("expected a clean merge, got %+v", r)
	}
	if r.Method != MethodStructured {
		t.Errorf("expected method %q, got %q", MethodStructured, r.Method)
	}
}

func TestStructuredMerge_UnsupportedLanguageIsNotCalled(t *testing.T) {
	// Detect (not exercised here) is what surfaces ErrUnsupportedLanguage;
	// StructuredMerge itself always receives a resolved profile, so this
	// documents the division of responsibility rather than testing it.
	if _, ok := lang.ByName("not-a-real-language"); ok {
		t.Fatal("expected lookup to fail for a bogus language name")
	}
}

func TestLineBasedMerge_DisjointEditsNoConflict(t *testing.T) {
	base := []byte("package p\n\nfunc a() {}\nfunc b() {}\n")
	left := []byte("package p\n\nfunc a() { x() }\nfunc b() {}\n")
	right := []byte("package p\n\nfunc a() {}\nfunc b() { y() }\n")

	r := LineBasedMerge(base, left, right, goProfile(t), settings.DefaultDisplaySettings())
	if r.ConflictCount != 0 {
		t.Errorf("expected no conflicts, got %d: %s", r.ConflictCount, r.Contents)
	}
	if !strings.Contains(r.Contents, "x()") || !strings.Contains(r.Contents, "y()") {
		t.Errorf("expected both edits present, got %q", r.Contents)
	}
}

func TestResolveCascading_PicksStructuredOverLineBasedWhenClean(t *testing.T) {
	base := []byte("package p\n\nfunc a() {}\n")
	left := []byte("package p\n\nfunc a() {}\nfunc b() {}\n")
	right := []byte("package p\n\nfunc a() {}\n")

	ds := settings.DefaultDisplaySettings()
	ms := settings.DefaultMatcherSettings()
	r := ResolveCascading(base, left, right, goProfile(t), ds, ms, time.Second)
	if r.Method != MethodStructured {
		t.Errorf("expected structured method to win a clean merge, got %q: %s", r.Method, r.Contents)
	}
	if r.ConflictCount != 0 {
		t.Errorf("expected 0 conflicts, got %d", r.ConflictCount)
	}
}

func TestResolveCascading_FallsBackOnImmediateTimeout(t *testing.T) {
	base := []byte("package p\n\nfunc a() {}\n")
	left := []byte("package p\n\nfunc a() {}\nfunc b() {}\n")
	right := []byte("package p\n\nfunc a() {}\n")

	ds := settings.DefaultDisplaySettings()
	ms := settings.DefaultMatcherSettings()
	r := ResolveCascading(base, left, right, goProfile(t), ds, ms, 1*time.Nanosecond)
	if r.Method != MethodLineBased && r.Method != MethodStructured {
		t.Errorf("expected either method to still produce a usable result, got %q", r.Method)
	}
}

func TestProjectConflictMarkers_RoundTripsASimpleConflict(t *testing.T) {
	ds := settings.DefaultDisplaySettings()
	ds.Diff3 = true
	content := "<<<<<<< left\nLEFT\n||||||| base\nBASE\n=======\nRIGHT\n>>>>>>> right\n"

	base, left, right, ok := ProjectConflictMarkers(content, ds)
	if !ok {
		t.Fatal("expected markers to be found")
	}
	if base != "BASE\n" || left != "LEFT\n" || right != "RIGHT\n" {
		t.Errorf("got base=%q left=%q right=%q", base, left, right)
	}
}

func TestProjectConflictMarkers_NoMarkersReturnsNotOK(t *testing.T) {
	_, _, _, ok := ProjectConflictMarkers("package p\n\nfunc a() {}\n", settings.DefaultDisplaySettings())
	if ok {
		t.Error("expected no markers to be found in plain content")
	}
}

func TestResolveConflicted_StructuredInPlaceResolvesCleanly(t *testing.T) {
	ds := settings.DefaultDisplaySettings()
	ds.Diff3 = true
	content := "package p\n\n" +
		"<<<<<<< left\n" +
		"func a() { x() }\n" +
		"||||||| base\n" +
		"func a() {}\n" +
		"=======\n" +
		"func a() {}\n" +
		">>>>>>> right\n" +
		"func b() {}\n"

	ms := settings.DefaultMatcherSettings()
	r := ResolveConflicted([]byte(content), nil, nil, nil, false, goProfile(t), ds, ms, time.Second)
	if r.ConflictCount != 0 {
		t.Errorf("expected the structured-in-place pass to resolve the hunk cleanly, got %d conflicts: %s", r.ConflictCount, r.Contents)
	}
	if !strings.Contains(r.Contents, "x()") {
		t.Errorf("expected left's edit preserved, got %q", r.Contents)
	}
}
