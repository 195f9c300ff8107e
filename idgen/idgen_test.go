package idgen

import (
	"strings"
	"testing"
)

func TestOfficeDeterministic(t *testing.T) {
	// WHAT: The same (agency, office name) pair always derives the same ID.
	// WHY: ID stability is the convergence guarantee for repeated scrapes.
	a := Office("CISA", "Region 3 Office")
	b := Office("CISA", "Region 3 Office")
	if a != b {
		t.Fatalf("same inputs derived different IDs: %q vs %q", a, b)
	}
	if a != "cisa-region-3-office" {
		t.Errorf("Office() = %q, want %q", a, "cisa-region-3-office")
	}
}

func TestOfficeNormalization(t *testing.T) {
	// Case and punctuation differences must converge on one ID.
	tests := []struct {
		agency, name string
		want         string
	}{
		{"CISA", "Region 3 Office", "cisa-region-3-office"},
		{"cisa", "REGION 3   OFFICE", "cisa-region-3-office"},
		{"C.I.S.A.", "Region #3 (Office)", "c-i-s-a-region-3-office"},
		{"FBI", "Philadelphia Field Office", "fbi-philadelphia-field-office"},
		{"", "Standalone Lab", "standalone-lab"},
	}
	for _, tt := range tests {
		if got := Office(tt.agency, tt.name); got != tt.want {
			t.Errorf("Office(%q, %q) = %q, want %q", tt.agency, tt.name, got, tt.want)
		}
	}
}

func TestOfficeDistinctNames(t *testing.T) {
	if Office("FBI", "Dallas Field Office") == Office("FBI", "Denver Field Office") {
		t.Fatal("distinct office names derived the same ID")
	}
}

func TestOfficeTruncation(t *testing.T) {
	// WHAT: Names beyond the slug budget are truncated; names agreeing on the
	// truncated prefix collide.
	// WHY: Documented compatibility limitation — the test pins the behavior so
	// an accidental widening of the ID space is caught.
	long := strings.Repeat("verylongofficename", 8)
	id := Office("EPA", long)
	if len(id) > len("epa-")+maxNameSlug {
		t.Errorf("derived ID %q exceeds the name budget", id)
	}
	other := Office("EPA", long+"-different-suffix")
	if id != other {
		t.Errorf("expected prefix collision for over-budget names, got %q vs %q", id, other)
	}
}

func TestPrefixedUUIDv7(t *testing.T) {
	gen := Prefixed("chg_", UUIDv7())
	id := gen()
	if !strings.HasPrefix(id, "chg_") {
		t.Errorf("id %q missing prefix", id)
	}
	if id == gen() {
		t.Error("two generated IDs are equal")
	}
}
