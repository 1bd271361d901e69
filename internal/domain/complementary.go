package domain

// sweet spot bounds for goal overlap.
const (
	sweetSpotLow  = 0.3
	sweetSpotHigh = 0.7

	// score when either side has no goals to compare
	neutralComplementaryScore = 0.5
)

// ComplementaryScore rewards partial goal overlap over none or total overlap.
//
// overlap is the jaccard similarity of the two goal sets:
//   - [0.3, 0.7] scores 1.0
//   - below 0.3 scores 0.5 + overlap
//   - above 0.7 scores 0.8 + (1 - overlap) * 0.2
//
// missing goals on either side score a neutral 0.5.
func ComplementaryScore(userGoals, candidateGoals []string) float64 {
	if len(tagSet(userGoals)) == 0 || len(tagSet(candidateGoals)) == 0 {
		return neutralComplementaryScore
	}

	return complementaryFromOverlap(JaccardSimilarity(userGoals, candidateGoals))
}

// complementaryFromOverlap maps a raw overlap onto the sweet spot curve.
func complementaryFromOverlap(overlap float64) float64 {
	overlap = clamp01(overlap)
	switch {
	case overlap < sweetSpotLow:
		return clamp01(0.5 + overlap)
	case overlap > sweetSpotHigh:
		return clamp01(0.8 + (1-overlap)*0.2)
	default:
		return 1
	}
}
