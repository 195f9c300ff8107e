package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/fieldreg/registry/internal/store"
)

// cannedGen returns a fixed completion.
type cannedGen struct {
	out string
	err error
}

func (c cannedGen) Generate(context.Context, string) (string, error) { return c.out, c.err }

func testSource() *store.Source {
	return &store.Source{
		ID:     "src-cisa",
		Agency: "CISA",
		URL:    "https://www.cisa.gov/about/regions",
	}
}

func TestModelExtractRecoversJSONFromProse(t *testing.T) {
	// WHAT: The model wraps its JSON array in prose; extraction must
	// recover the array and stamp ids, sectors, and priority.
	out := "Sure, here are the offices:\n```json\n" +
		`[{"name":"Region 3 Office","role_type":"regional","address":"123 Main St","city":"Philadelphia","state":"PA"},` +
		`{"name":"Philadelphia Field Office","phone":"215-555-0100"}]` +
		"\n```\nLet me know if you need more."

	m := NewModelExtractor(cannedGen{out: out})
	res := m.Extract(context.Background(), "page text", testSource())

	if res.Method != "model" {
		t.Fatalf("method: %q", res.Method)
	}
	if res.Confidence != 0.8 {
		t.Fatalf("confidence: %v", res.Confidence)
	}
	if len(res.Entities) != 2 {
		t.Fatalf("entities: %d", len(res.Entities))
	}

	e := res.Entities[0]
	if e.ID != "cisa-region-3-office" {
		t.Errorf("id: %q", e.ID)
	}
	if e.Agency != "CISA" {
		t.Errorf("agency not stamped: %q", e.Agency)
	}
	if e.SourceURL != "https://www.cisa.gov/about/regions" {
		t.Errorf("source url not stamped: %q", e.SourceURL)
	}
	if e.LastVerified == 0 {
		t.Error("last_verified not stamped")
	}
	if e.Priority != 2 {
		t.Errorf("regional priority: %d", e.Priority)
	}
	if len(e.Sectors) == 0 || e.Sectors[0] != "Government Facilities" {
		t.Errorf("sectors: %v", e.Sectors)
	}

	// Second entity: role inferred from name, field priority.
	if res.Entities[1].RoleType != "field" {
		t.Errorf("inferred role: %q", res.Entities[1].RoleType)
	}
	if res.Entities[1].Priority != 3 {
		t.Errorf("field priority: %d", res.Entities[1].Priority)
	}
}

func TestModelExtractUnknownAgencyDefaultsSectors(t *testing.T) {
	out := `[{"name":"Springfield Field Office","agency":"OBSCURE"}]`
	m := NewModelExtractor(cannedGen{out: out})
	res := m.Extract(context.Background(), "text", testSource())
	if len(res.Entities) != 1 {
		t.Fatalf("entities: %d", len(res.Entities))
	}
	got := res.Entities[0].Sectors
	if len(got) != 1 || got[0] != "Government Facilities" {
		t.Fatalf("default sectors: %v", got)
	}
}

func TestModelExtractNoJSON(t *testing.T) {
	m := NewModelExtractor(cannedGen{out: "I could not find any offices in that content."})
	res := m.Extract(context.Background(), "text", testSource())
	if len(res.Entities) != 0 || res.Confidence != 0.1 {
		t.Fatalf("expected degraded result, got %+v", res)
	}
	if len(res.Errors) == 0 {
		t.Fatal("error not captured")
	}
}

func TestModelExtractBadJSON(t *testing.T) {
	m := NewModelExtractor(cannedGen{out: `[{"name": unquoted}]`})
	res := m.Extract(context.Background(), "text", testSource())
	if len(res.Entities) != 0 || res.Confidence != 0.1 {
		t.Fatalf("expected degraded result, got %+v", res)
	}
}

func TestModelExtractGeneratorError(t *testing.T) {
	m := NewModelExtractor(cannedGen{err: errors.New("server down")})
	res := m.Extract(context.Background(), "text", testSource())
	if len(res.Entities) != 0 || res.Confidence != 0.1 {
		t.Fatalf("expected degraded result, got %+v", res)
	}
}

func TestBuildPromptTruncation(t *testing.T) {
	long := strings.Repeat("x", maxPromptContent+5000)
	prompt := buildPrompt(long, testSource())
	// The content portion must be cut to the budget.
	if strings.Count(prompt, "x") != maxPromptContent {
		t.Fatalf("content not truncated: %d x's", strings.Count(prompt, "x"))
	}
}

func TestRecoverJSONArray(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`[1,2]`, `[1,2]`, true},
		{"prose [\n{}\n] trailing", "[\n{}\n]", true},
		{`nested [[1],[2]] end`, `[[1],[2]]`, true},
		{`no brackets here`, ``, false},
		{`] backwards [`, ``, false},
	}
	for _, c := range cases {
		got, ok := recoverJSONArray(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("recoverJSONArray(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}
