// CLAUDE:SUMMARY Pattern-driven extraction: regex battery over tag-stripped text.
package extract

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/fieldreg/registry/internal/store"
)

// PatternExtractor runs a fixed regex battery over raw text. Used only when
// the source declares a selector hint.
type PatternExtractor struct {
	sanitizer *bluemonday.Policy
}

// NewPatternExtractor builds the tag-stripping sanitizer once.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{sanitizer: bluemonday.StrictPolicy()}
}

var (
	// Office-name-like phrases: "... Region(al) ... Office", "... Field
	// Office", "... Resident Agency", "... Laboratory", "... Sector Office".
	officeRe = regexp.MustCompile(`(?i)\b([A-Z][A-Za-z&.\- ]{2,60}?(?:Region(?:al)?(?: [IVX0-9]+)?(?: Office)?|Field Office|Resident Agency|Laboratory|Sector Office))\b`)

	// Street addresses: number + words + street suffix.
	addressRe = regexp.MustCompile(`(?i)\b\d{1,6} [A-Za-z0-9.\- ]{3,50}(?:Street|St\.?|Avenue|Ave\.?|Boulevard|Blvd\.?|Road|Rd\.?|Drive|Dr\.?|Lane|Ln\.?|Way|Plaza|Pkwy|Parkway|Suite [0-9]+)\b`)

	// US phone numbers.
	phoneRe = regexp.MustCompile(`\(?\b\d{3}\)?[-. ]\d{3}[-. ]\d{4}\b`)
)

// Extract runs the pattern strategy. Office-name matches drive the entity
// list; the i-th address and phone are attached positionally when present.
// The pairing is deliberately approximate — no DOM awareness.
func (p *PatternExtractor) Extract(raw string, src *store.Source) *Result {
	text := p.sanitizer.Sanitize(raw)

	names := dedupeMatches(officeRe.FindAllString(text, -1))
	addresses := addressRe.FindAllString(text, -1)
	phones := phoneRe.FindAllString(text, -1)

	now := nowMilli()
	var entities []*store.Entity
	for i, name := range names {
		e := &store.Entity{
			Name:     strings.TrimSpace(name),
			RoleType: inferRole(name),
		}
		if i < len(addresses) {
			e.Address = strings.TrimSpace(addresses[i])
		}
		if i < len(phones) {
			e.Phone = strings.TrimSpace(phones[i])
		}
		finalize(e, src.Agency, src.URL, now)
		entities = append(entities, e)
	}

	confidence := 0.1
	if len(entities) > 0 {
		confidence = 0.6
	}
	return &Result{Entities: entities, Confidence: confidence, Method: "pattern"}
}

// dedupeMatches drops repeated office names, preserving first-seen order so
// positional pairing stays aligned with document order.
func dedupeMatches(matches []string) []string {
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		key := strings.ToLower(strings.TrimSpace(m))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(m))
	}
	return out
}
