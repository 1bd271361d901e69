package domain

import (
	"errors"
	"maps"
	"math"
	"slices"
	"sort"
	"time"
)

// Factor names one sub-score that feeds the aggregate compatibility score.
type Factor string

const (
	FactorCommunity      Factor = "community"
	FactorGoal           Factor = "goal"
	FactorActivity       Factor = "activity"
	FactorComplementary  Factor = "complementary"
	FactorActivityParity Factor = "activity_parity"
	FactorStreakParity   Factor = "streak_parity"
)

// Weights maps each factor to its share of the aggregate score.
// weights are normalized by their sum, so they don't have to add up to exactly 1.
type Weights map[Factor]float64

var (
	ErrNegativeWeight = errors.New("weights cannot be negative")
	ErrEmptyWeights   = errors.New("at least one weight must be positive")
)

// Validate checks that the weights can produce a bounded score.
func (w Weights) Validate() error {
	var sum float64
	for _, v := range w {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNegativeWeight
		}
		sum += v
	}
	if sum <= 0 {
		return ErrEmptyWeights
	}
	return nil
}

// DefaultDiscoveryWeights is the weight profile for open-ended peer discovery.
func DefaultDiscoveryWeights() Weights {
	return Weights{
		FactorCommunity:     0.30,
		FactorGoal:          0.35,
		FactorActivity:      0.20,
		FactorComplementary: 0.15,
	}
}

// MatchProfile is the snapshot of a user the engine scores against.
// plain data: built by the application layer from storage, never mutated by the engine.
type MatchProfile struct {
	ID                 UserID
	Communities        []string
	Goals              []string
	Streak             int
	LifetimeActivity   int
	HiddenFromMatching bool
}

// CompatibilityResult is one ranked, annotated candidate.
type CompatibilityResult struct {
	CandidateID       UserID         `json:"candidate_id"`
	Score             int            `json:"score"`
	Factors           map[Factor]int `json:"factors"`
	SharedCommunities []string       `json:"shared_communities"`
	MatchingGoals     []string       `json:"matching_goals"`
	RecentActivity    int            `json:"recent_activity"`
}

// aggregate combines sub-scores with the given weights into an integer 0-100.
// it returns 100 only when every weighted factor is exactly 1.
// factors are summed in sorted order so identical input always rounds the same way.
func aggregate(weights Weights, scores map[Factor]float64) int {
	var weighted, total float64
	perfect := true

	for _, factor := range slices.Sorted(maps.Keys(weights)) {
		w := weights[factor]
		if w <= 0 {
			continue
		}
		s := clamp01(scores[factor])
		if s < 1 {
			perfect = false
		}
		weighted += w * s
		total += w
	}
	if total == 0 {
		return 0
	}
	if perfect {
		return 100
	}

	// rounding alone must not produce a perfect score
	return min(scaleScore(weighted/total), 99)
}

// roundingEpsilon absorbs float error on half points, e.g. 22.499999999 rounds to 23.
const roundingEpsilon = 1e-9

// scaleScore maps a [0, 1] value onto an integer 0-100, rounding half up.
func scaleScore(v float64) int {
	return int(math.Floor(clamp01(v)*100 + 0.5 + roundingEpsilon))
}

// scaleFactors converts internal sub-scores to their integer form for output.
func scaleFactors(weights Weights, scores map[Factor]float64) map[Factor]int {
	out := make(map[Factor]int, len(scores))
	for factor, s := range scores {
		if _, ok := weights[factor]; !ok {
			continue
		}
		out[factor] = scaleScore(s)
	}
	return out
}

// DiscoveryConfig is the scoring configuration for discovery mode.
type DiscoveryConfig struct {
	Weights Weights
}

// DefaultDiscoveryConfig returns the production discovery configuration.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{Weights: DefaultDiscoveryWeights()}
}

// DiscoveryInput is a fully materialized snapshot for one discovery ranking.
type DiscoveryInput struct {
	User       MatchProfile
	Candidates []MatchProfile

	// Activity holds recent records for the candidates, grouped by author inside the engine.
	Activity []ActivityRecord

	// Now is evaluated once per call; zero means time.Now().
	Now time.Time
}

// GroupActivityByAuthor indexes activity records by their author.
func GroupActivityByAuthor(records []ActivityRecord) map[UserID][]ActivityRecord {
	grouped := make(map[UserID][]ActivityRecord)
	for _, r := range records {
		grouped[r.AuthorID] = append(grouped[r.AuthorID], r)
	}
	return grouped
}

// ScoreCandidate computes the discovery compatibility of a single candidate.
// this is the per-candidate step of RankCandidates, exported so callers can fan out.
func ScoreCandidate(cfg DiscoveryConfig, user, candidate MatchProfile, activity []ActivityRecord, now time.Time) CompatibilityResult {
	goals := MatchGoals(user.Goals, candidate.Goals)
	engagement := ActivityScore(ActivityInput{
		Streak:        candidate.Streak,
		LifetimeCount: candidate.LifetimeActivity,
		Records:       activity,
		Now:           now,
	})

	scores := map[Factor]float64{
		FactorCommunity:     JaccardSimilarity(user.Communities, candidate.Communities),
		FactorGoal:          goals.Score,
		FactorActivity:      engagement.Score,
		FactorComplementary: ComplementaryScore(user.Goals, candidate.Goals),
	}

	return CompatibilityResult{
		CandidateID:       candidate.ID,
		Score:             aggregate(cfg.Weights, scores),
		Factors:           scaleFactors(cfg.Weights, scores),
		SharedCommunities: nonNil(SharedTags(user.Communities, candidate.Communities)),
		MatchingGoals:     nonNil(goals.Overlapping),
		RecentActivity:    engagement.RecentCount,
	}
}

// RankCandidates scores every candidate and returns them best first.
//
// candidates are expected to exclude the requester already. equal scores keep
// their input order (stable sort), there is no secondary key.
func RankCandidates(cfg DiscoveryConfig, in DiscoveryInput) []CompatibilityResult {
	if in.User.ID.IsZero() || len(in.Candidates) == 0 {
		return []CompatibilityResult{}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	byAuthor := GroupActivityByAuthor(in.Activity)

	results := make([]CompatibilityResult, 0, len(in.Candidates))
	for _, candidate := range in.Candidates {
		results = append(results, ScoreCandidate(cfg, in.User, candidate, byAuthor[candidate.ID], now))
	}

	SortResults(results)
	return results
}

// SortResults orders results by score descending, keeping input order for ties.
func SortResults(results []CompatibilityResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
