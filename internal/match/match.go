// Package match holds the fuzzy containment test and the word-overlap
// score used to decide whether an indexed fragment is still present in
// the live page and which highlighted span fits it best.
package match

import "strings"

const (
	// minTargetRunes rejects targets too short to fuzzy-match without
	// false positives.
	minTargetRunes = 10
	// minPrefixRunes floors the head prefix so short targets still get
	// a meaningful containment test.
	minPrefixRunes = 20
	// prefixRatio is the share of the target used as the head prefix.
	prefixRatio = 0.8
)

// normalize collapses whitespace runs (including newlines) to single
// spaces, trims, and lowercases.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// FuzzyIncludes reports whether target is contained "enough" in
// candidate. It takes a prefix of the normalized target, max(20, 80% of
// its length) counted in runes, and tests literal containment. This
// head-substring heuristic tolerates trailing drift (content changed
// after the indexed point) but not leading drift; that asymmetry is a
// known limitation of the scheme, not an oversight.
func FuzzyIncludes(candidate, target string) bool {
	t := []rune(normalize(target))
	if len(t) < minTargetRunes {
		return false
	}
	prefixLen := int(prefixRatio * float64(len(t)))
	if prefixLen < minPrefixRunes {
		prefixLen = minPrefixRunes
	}
	if prefixLen > len(t) {
		prefixLen = len(t)
	}
	return strings.Contains(normalize(candidate), string(t[:prefixLen]))
}

// Score returns the fraction of target words present anywhere in text,
// case-insensitively, in [0,1]. Duplicate target words each count.
func Score(text, target string) float64 {
	targetWords := strings.Fields(strings.ToLower(target))
	if len(targetWords) == 0 {
		return 0
	}
	seen := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		seen[w] = true
	}
	hits := 0
	for _, w := range targetWords {
		if seen[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(targetWords))
}
