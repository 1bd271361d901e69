package domain

import (
	"strings"
	"unicode"
)

// goal comparison tiers.
const (
	exactGoalScore    = 1.0
	containsGoalScore = 0.8

	// fuzzy matches only count above this edit similarity and are discounted
	fuzzyGoalThreshold = 0.6
	fuzzyGoalDiscount  = 0.7

	// candidate goals at or above this contribution are surfaced as overlapping
	overlapGoalThreshold = 0.6
)

// GoalMatch is the result of comparing two goal lists.
type GoalMatch struct {
	// Score is the mean best contribution across the requester's goals, in [0, 1].
	Score float64

	// Overlapping lists the candidate goals that matched, as the candidate wrote them.
	Overlapping []string
}

// goalTerm keeps a goal's original spelling next to its comparison key.
type goalTerm struct {
	original string
	key      string
}

// goalTerms normalizes a goal list, dropping blanks and duplicate keys.
func goalTerms(goals []string) []goalTerm {
	seen := make(map[string]bool, len(goals))
	terms := make([]goalTerm, 0, len(goals))
	for _, g := range goals {
		key := normalizeTerm(g)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, goalTerm{original: strings.TrimSpace(g), key: key})
	}
	return terms
}

// goalContribution scores a single pair of normalized goals.
func goalContribution(a, b string) float64 {
	if a == b {
		return exactGoalScore
	}
	if strings.Contains(a, b) || strings.Contains(b, a) || isAbbreviation(a, b) || isAbbreviation(b, a) {
		return containsGoalScore
	}

	sim := EditSimilarity(a, b)
	if sim > fuzzyGoalThreshold {
		return sim * fuzzyGoalDiscount
	}
	return 0
}

// isAbbreviation reports whether short is the initials of long, e.g. "ml" for "machine learning".
func isAbbreviation(short, long string) bool {
	if len(short) < 2 || strings.IndexFunc(short, unicode.IsSpace) >= 0 {
		return false
	}

	words := strings.FieldsFunc(long, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) < 2 {
		return false
	}

	var initials strings.Builder
	for _, w := range words {
		initials.WriteRune([]rune(w)[0])
	}
	return initials.String() == short
}

// MatchGoals compares the requester's goals against a candidate's goals.
//
// each requester goal keeps its best contribution over all candidate goals:
// exact 1.0, containment (or abbreviation) 0.8, otherwise edit similarity * 0.7
// when the similarity is above 0.6. the score is the mean of those best values.
func MatchGoals(userGoals, candidateGoals []string) GoalMatch {
	users := goalTerms(userGoals)
	candidates := goalTerms(candidateGoals)
	if len(users) == 0 || len(candidates) == 0 {
		return GoalMatch{}
	}

	// best contribution each candidate goal reached against any requester goal
	candidateBest := make([]float64, len(candidates))

	var total float64
	for _, u := range users {
		best := 0.0
		for j, c := range candidates {
			contribution := goalContribution(u.key, c.key)
			if contribution > candidateBest[j] {
				candidateBest[j] = contribution
			}
			if contribution > best {
				best = contribution
			}
			// an exact hit settles this goal's score, but the remaining candidate
			// goals are still scanned so overlapping goals don't depend on their order
		}
		total += best
	}

	var overlapping []string
	for j, c := range candidates {
		if candidateBest[j] >= overlapGoalThreshold {
			overlapping = append(overlapping, c.original)
		}
	}

	return GoalMatch{
		Score:       clamp01(total / float64(len(users))),
		Overlapping: overlapping,
	}
}

// GoalMatchRatio is the simpler goal factor used for accountability partners:
// the number of requester goals with any exact, contained or fuzzy counterpart,
// divided by the longer of the two goal lists. it also returns the candidate goals that matched.
func GoalMatchRatio(userGoals, candidateGoals []string) (float64, []string) {
	users := goalTerms(userGoals)
	candidates := goalTerms(candidateGoals)
	if len(users) == 0 || len(candidates) == 0 {
		return 0, nil
	}

	matchedCandidate := make([]bool, len(candidates))
	matched := 0
	for _, u := range users {
		found := false
		for j, c := range candidates {
			if goalContribution(u.key, c.key) > 0 {
				matchedCandidate[j] = true
				found = true
			}
		}
		if found {
			matched++
		}
	}

	var labels []string
	for j, c := range candidates {
		if matchedCandidate[j] {
			labels = append(labels, c.original)
		}
	}

	denominator := max(len(users), len(candidates), 1)
	return clamp01(float64(matched) / float64(denominator)), labels
}
