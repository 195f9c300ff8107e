package extract

import (
	"testing"
)

const patternSample = `<html><body>
<p>CISA Region 3 Office is located at 123 Main Street, Philadelphia, PA.
Call (215) 555-0100 for assistance.</p>
<p>The Pittsburgh Field Office at 456 Liberty Avenue can be reached at
412-555-0199.</p>
<p>The Erie Resident Agency handles the northwest counties.</p>
<script>var x = 1;</script>
</body></html>`

func TestPatternExtractPairing(t *testing.T) {
	// WHAT: Office names drive the entity list; addresses and phones
	// attach positionally, stopping when the shorter match list runs out.
	p := NewPatternExtractor()
	src := testSource()
	src.Selector = "office-list"

	res := p.Extract(patternSample, src)
	if res.Method != "pattern" {
		t.Fatalf("method: %q", res.Method)
	}
	if res.Confidence != 0.6 {
		t.Fatalf("confidence: %v", res.Confidence)
	}
	if len(res.Entities) != 3 {
		for _, e := range res.Entities {
			t.Logf("entity: %q", e.Name)
		}
		t.Fatalf("entities: %d", len(res.Entities))
	}

	first := res.Entities[0]
	if first.RoleType != "regional" {
		t.Errorf("first role: %q", first.RoleType)
	}
	if first.Address != "123 Main Street" {
		t.Errorf("first address: %q", first.Address)
	}
	if first.Phone != "(215) 555-0100" {
		t.Errorf("first phone: %q", first.Phone)
	}
	if first.Agency != "CISA" {
		t.Errorf("agency not stamped: %q", first.Agency)
	}
	if first.ID == "" {
		t.Error("id not derived")
	}

	second := res.Entities[1]
	if second.RoleType != "field" {
		t.Errorf("second role: %q", second.RoleType)
	}
	if second.Address != "456 Liberty Avenue" {
		t.Errorf("second address: %q", second.Address)
	}

	// Third office has no matching address or phone; fields stay empty.
	third := res.Entities[2]
	if third.RoleType != "resident" {
		t.Errorf("third role: %q", third.RoleType)
	}
	if third.Address != "" || third.Phone != "" {
		t.Errorf("third should have no address/phone: %q %q", third.Address, third.Phone)
	}
}

func TestPatternExtractNoMatches(t *testing.T) {
	p := NewPatternExtractor()
	res := p.Extract("nothing office-like here at all", testSource())
	if len(res.Entities) != 0 {
		t.Fatalf("entities: %d", len(res.Entities))
	}
	if res.Confidence != 0.1 {
		t.Fatalf("confidence: %v", res.Confidence)
	}
}

func TestPatternExtractDeduplicatesNames(t *testing.T) {
	text := "CISA Region 3 Office. Again: CISA Region 3 Office."
	p := NewPatternExtractor()
	res := p.Extract(text, testSource())
	if len(res.Entities) != 1 {
		t.Fatalf("duplicate names not collapsed: %d", len(res.Entities))
	}
}

func TestInferRole(t *testing.T) {
	cases := map[string]string{
		"Region 5 Office":          "regional",
		"Springfield Field Office": "field",
		"Erie Resident Agency":     "resident",
		"Houston Sector Office":    "sector",
		"National Forensics Lab":   "lab",
		"Headquarters Annex":       "field",
	}
	for name, want := range cases {
		if got := inferRole(name); got != want {
			t.Errorf("inferRole(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestLookupTableDefaults(t *testing.T) {
	if got := priorityForRole("director"); got != 5 {
		t.Errorf("unknown role priority: %d", got)
	}
	got := sectorsForAgency("Unknown Agency")
	if len(got) != 1 || got[0] != "Government Facilities" {
		t.Errorf("unknown agency sectors: %v", got)
	}
	// Known agency lookup is case-insensitive.
	if got := sectorsForAgency("cisa"); got[0] != "Government Facilities" {
		t.Errorf("cisa sectors: %v", got)
	}
}
