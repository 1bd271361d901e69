package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// normalizeTerm lowercases and trims a tag or goal label for comparison.
func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// clamp01 bounds a similarity value to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// EditSimilarity returns 1 - levenshtein(a, b) / len(longer), measured in runes.
// inputs are expected to be normalized already. an empty side is not comparable and scores 0.
func EditSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	// ComputeDistance allocates one row per call. goals are capped at MaxGoals
	// of MaxGoalLength runes, so a candidate costs at most MaxGoals² small rows;
	// a pooled buffer is only worth it if MATCH_CANDIDATE_LIMIT grows far past 50.
	distance := levenshtein.ComputeDistance(a, b)

	return clamp01(1 - float64(distance)/float64(longest))
}

// tagSet builds a set of normalized, non-blank tags.
func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = normalizeTerm(t)
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

// JaccardSimilarity returns |A ∩ B| / |A ∪ B| over trimmed, case-insensitive tags.
// two empty collections have no overlap worth rewarding, so the result is 0 rather than 1.
func JaccardSimilarity(a, b []string) float64 {
	setA := tagSet(a)
	setB := tagSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	// iterate the smaller set
	small, large := setA, setB
	if len(small) > len(large) {
		small, large = large, small
	}

	intersection := 0
	for t := range small {
		if _, ok := large[t]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return clamp01(float64(intersection) / float64(union))
}

// SharedTags returns the tags of b that also appear in a, in b's order and original casing.
func SharedTags(a, b []string) []string {
	setA := tagSet(a)
	seen := make(map[string]bool)

	var shared []string
	for _, t := range b {
		key := normalizeTerm(t)
		if key == "" || seen[key] {
			continue
		}
		if _, ok := setA[key]; ok {
			seen[key] = true
			shared = append(shared, strings.TrimSpace(t))
		}
	}
	return shared
}
