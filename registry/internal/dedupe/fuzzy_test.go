package dedupe

import "testing"

func TestFieldsSimilarEquality(t *testing.T) {
	if !fieldsSimilar("CISA", "cisa") {
		t.Error("case-insensitive equality failed")
	}
	if !fieldsSimilar("  CISA ", "CISA") {
		t.Error("whitespace trimming failed")
	}
	if fieldsSimilar("", "") {
		t.Error("empty values must never match")
	}
	if fieldsSimilar("CISA", "") {
		t.Error("one empty value must never match")
	}
}

func TestFieldsSimilarContainment(t *testing.T) {
	// Stop-words and punctuation are stripped before the containment check.
	if !fieldsSimilar("Office of the Inspector General", "Inspector General") {
		t.Error("containment after stop-word stripping failed")
	}
	if !fieldsSimilar("123 Main St.", "123 Main St") {
		t.Error("punctuation stripping failed")
	}
	if fieldsSimilar("Houston Sector Office", "New Orleans Resident Agency") {
		t.Error("unrelated offices must not match")
	}
}

func TestFieldsSimilarLevenshtein(t *testing.T) {
	// One typo in a short value clears the 0.8 similarity bar.
	if !fieldsSimilar("Philadelphia", "Philadelhpia") {
		t.Error("near-identical short values should match")
	}
	if fieldsSimilar("Philadelphia", "Pittsburgh") {
		t.Error("different cities must not match")
	}
}

func TestFieldsSimilarSymmetry(t *testing.T) {
	// WHAT: isSimilar(a, b) == isSimilar(b, a) for containment and
	// Levenshtein paths.
	pairs := [][2]string{
		{"CISA Region 3 Office", "Region 3 Office"},
		{"123 Main Street", "123 Main St"},
		{"Philadelphia", "Philadelhpia"},
		{"Philadelphia", "Pittsburgh"},
		{"Office of the Director", "Director Office"},
	}
	for _, p := range pairs {
		if fieldsSimilar(p[0], p[1]) != fieldsSimilar(p[1], p[0]) {
			t.Errorf("asymmetric result for %q / %q", p[0], p[1])
		}
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"same", "same", 0},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestLevenshteinRatio(t *testing.T) {
	if r := levenshteinRatio("same", "same"); r != 1 {
		t.Errorf("identical ratio: %v", r)
	}
	if r := levenshteinRatio("abcd", "wxyz"); r != 0 {
		t.Errorf("disjoint ratio: %v", r)
	}
}

func TestStripStopwords(t *testing.T) {
	got := stripStopwords("office of the inspector, general!")
	if got != "office inspector general" {
		t.Fatalf("got %q", got)
	}
}

func TestLongValuesSkipLevenshtein(t *testing.T) {
	// Values of 50+ chars rely on equality/containment only.
	long1 := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaab"
	long2 := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaac"
	if fieldsSimilar(long1, long2) {
		t.Error("long near-identical values must not fuzzy-match via Levenshtein")
	}
}
