package content

import (
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>CISA Regional Offices</title><style>body{margin:0}</style></head>
<body>
<nav>Home | About | Contact</nav>
<h1>Regional Offices</h1>
<p>Region 3 Office serves Delaware, Maryland, Pennsylvania, Virginia,
West Virginia, and the District of Columbia.</p>
<script>trackPageView();</script>
</body>
</html>`

func TestParseStructuredText(t *testing.T) {
	// WHAT: HTML parse mode yields a title and markdown-ish text without
	// script/style content.
	p := NewParser()
	parsed, err := p.Parse([]byte(samplePage), "structured-text", "https://www.cisa.gov/about/regions")
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Title != "CISA Regional Offices" {
		t.Errorf("title: got %q", parsed.Title)
	}
	if !strings.Contains(parsed.Text, "Region 3 Office") {
		t.Errorf("body text missing: %q", parsed.Text)
	}
	if strings.Contains(parsed.Text, "trackPageView") {
		t.Error("script content leaked into text")
	}
}

func TestParseJSONPassthrough(t *testing.T) {
	p := NewParser()
	raw := `[{"name":"Region 3 Office","agency":"CISA"}]`
	parsed, err := p.Parse([]byte(raw), "json", "")
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Text != raw {
		t.Fatalf("json must pass through untouched: %q", parsed.Text)
	}
}

func TestParseCSVPassthrough(t *testing.T) {
	p := NewParser()
	raw := "name,agency\nRegion 3 Office,CISA\n"
	parsed, err := p.Parse([]byte(raw), "csv", "")
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Text != raw {
		t.Fatalf("csv must pass through untouched: %q", parsed.Text)
	}
}

func TestParseUnknownTypeFallsBackToHTML(t *testing.T) {
	p := NewParser()
	parsed, err := p.Parse([]byte(samplePage), "xml", "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(parsed.Text, "Region 3 Office") {
		t.Errorf("fallback text missing: %q", parsed.Text)
	}
}

func TestParsePDFGarbage(t *testing.T) {
	p := NewParser()
	if _, err := p.Parse([]byte("not a pdf"), "pdf", ""); err == nil {
		t.Fatal("expected error for non-PDF bytes")
	}
}

func TestExtractTextFromStream(t *testing.T) {
	// WHAT: PDF content-stream operator parsing, including octal escapes.
	stream := []byte("BT\n/F1 12 Tf\n(Region 3) Tj\n10 0 Td\n(Field\\040Office) Tj\nT*\n[(123 Main St)] TJ\nET")
	text := extractTextFromStream(stream)
	for _, want := range []string{"Region 3", "Field Office", "123 Main St"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in %q", want, text)
		}
	}
}

func TestDecodePDFString(t *testing.T) {
	cases := map[string]string{
		`plain`:          "plain",
		`with\(parens\)`: "with(parens)",
		`tab\there`:      "tab\there",
		`octal\101`:      "octalA",
	}
	for in, want := range cases {
		if got := decodePDFString([]byte(in)); got != want {
			t.Errorf("decodePDFString(%q) = %q, want %q", in, got, want)
		}
	}
}
