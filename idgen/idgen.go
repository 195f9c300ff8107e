// Package idgen provides ID generation for fieldreg records.
//
// Two strategies coexist: random UUIDv7 generators for append-only records
// (change log entries, fetch log rows), and a deterministic office identifier
// derived from agency + office name so that repeated extraction of the same
// office converges on the same entity row.
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, globally unique.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
// Useful for type-scoped identifiers (e.g. "chg_", "log_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the ecosystem default: UUIDv7 (RFC 9562).
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// maxNameSlug is the character budget for the office-name part of a derived
// entity ID. Two distinct offices whose normalized names share this prefix
// collide on the same ID; the budget is kept for compatibility with existing
// registries rather than widened.
const maxNameSlug = 60

// Office derives the deterministic entity identifier for an office record.
// The ID is stable for a given (agency, office name) pair: both parts are
// slugified (lowercase, non-alphanumeric runs collapsed to single hyphens)
// and the name part is truncated to maxNameSlug characters.
func Office(agency, officeName string) string {
	a := Slug(agency)
	n := Slug(officeName)
	if len(n) > maxNameSlug {
		n = strings.Trim(n[:maxNameSlug], "-")
	}
	switch {
	case a == "":
		return n
	case n == "":
		return a
	}
	return a + "-" + n
}

// Slug lowercases s and collapses every run of non-alphanumeric characters
// into a single hyphen, trimming leading and trailing hyphens.
func Slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
