// CLAUDE:SUMMARY Field-level fuzzy text comparison: normalization, stop-word containment, Levenshtein.
package dedupe

import "strings"

// Two field values match when they are equal after normalization, when one
// contains the other after stripping stop-words and punctuation, or (for
// short values) when Levenshtein similarity exceeds 0.8. All three checks
// are symmetric.

const (
	levenshteinMaxLen     = 50
	levenshteinSimilarity = 0.8
)

var stopwords = map[string]bool{
	"the": true, "and": true, "of": true, "for": true, "in": true,
	"on": true, "at": true, "to": true, "a": true, "an": true,
}

// fieldsSimilar reports whether two field values refer to the same thing.
// Empty values never match.
func fieldsSimilar(a, b string) bool {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}

	sa, sb := stripStopwords(na), stripStopwords(nb)
	if sa != "" && sb != "" && (strings.Contains(sa, sb) || strings.Contains(sb, sa)) {
		return true
	}

	if len(na) < levenshteinMaxLen && len(nb) < levenshteinMaxLen {
		return levenshteinRatio(na, nb) > levenshteinSimilarity
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// stripStopwords removes punctuation and stop-words, collapsing the rest
// to single-space-separated tokens.
func stripStopwords(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte(' ')
		}
	}
	var kept []string
	for _, tok := range strings.Fields(sb.String()) {
		if !stopwords[tok] {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// levenshteinRatio is 1 - distance/max(len). Identical strings score 1.
func levenshteinRatio(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			min := prev[j] + 1 // deletion
			if ins := curr[j-1] + 1; ins < min {
				min = ins
			}
			if sub := prev[j-1] + cost; sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
