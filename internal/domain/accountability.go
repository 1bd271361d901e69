package domain

import "fmt"

// DefaultAccountabilityWeights is the weight profile for 1:1 accountability partners.
func DefaultAccountabilityWeights() Weights {
	return Weights{
		FactorCommunity:      0.40,
		FactorGoal:           0.30,
		FactorActivityParity: 0.20,
		FactorStreakParity:   0.10,
	}
}

// AccountabilityInput is the snapshot for one partner lookup inside a single scope (pod).
type AccountabilityInput struct {
	Requester  MatchProfile
	Candidates []MatchProfile

	// ExistingPartner is the requester's current partner in this scope, if any.
	ExistingPartner *UserID

	// Partnered holds users who already have an active partnership in this scope.
	Partnered map[UserID]bool
}

// EligibilityRule decides whether a candidate may be scored at all.
type EligibilityRule struct {
	Name    string
	Allowed func(in AccountabilityInput, candidate MatchProfile) bool
}

// NotSelf rejects the requester showing up in their own candidate pool.
var NotSelf = EligibilityRule{
	Name: "not_self",
	Allowed: func(in AccountabilityInput, candidate MatchProfile) bool {
		return candidate.ID != in.Requester.ID
	},
}

// NotHidden rejects candidates who opted out of matching.
var NotHidden = EligibilityRule{
	Name: "not_hidden",
	Allowed: func(_ AccountabilityInput, candidate MatchProfile) bool {
		return !candidate.HiddenFromMatching
	},
}

// NotPartnered rejects candidates already holding an exclusive partnership in scope.
var NotPartnered = EligibilityRule{
	Name: "not_partnered",
	Allowed: func(in AccountabilityInput, candidate MatchProfile) bool {
		return !in.Partnered[candidate.ID]
	},
}

// AccountabilityConfig is the scoring configuration for accountability mode.
type AccountabilityConfig struct {
	Weights     Weights
	Eligibility []EligibilityRule

	// StreakParityRange is the streak difference at which streak parity reaches 0.
	StreakParityRange int

	// ReasonStreakDelta is the largest streak difference still called "similar".
	ReasonStreakDelta int

	MaxReasons int
}

// DefaultAccountabilityConfig returns the production accountability configuration.
func DefaultAccountabilityConfig() AccountabilityConfig {
	return AccountabilityConfig{
		Weights:           DefaultAccountabilityWeights(),
		Eligibility:       []EligibilityRule{NotSelf, NotHidden, NotPartnered},
		StreakParityRange: 10,
		ReasonStreakDelta: 3,
		MaxReasons:        3,
	}
}

// PartnershipCandidate is the chosen accountability partner.
type PartnershipCandidate struct {
	CompatibilityResult

	// Reasons are short human readable explanations, at most MaxReasons.
	Reasons []string `json:"reasons"`

	// Existing is true when the requester already had this partner and nothing was scored.
	Existing bool `json:"existing"`
}

// ActivityParity rewards similar (not necessarily high) lifetime activity.
func ActivityParity(a, b int) float64 {
	a, b = max(a, 0), max(b, 0)
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return clamp01(1 - float64(diff)/float64(max(a, b, 1)))
}

// StreakParity decays linearly with the streak difference and reaches 0 at rangeDays.
func StreakParity(a, b, rangeDays int) float64 {
	if rangeDays <= 0 {
		rangeDays = 1
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return clamp01(1 - float64(diff)/float64(rangeDays))
}

func (cfg AccountabilityConfig) eligible(in AccountabilityInput, candidate MatchProfile) bool {
	for _, rule := range cfg.Eligibility {
		if !rule.Allowed(in, candidate) {
			return false
		}
	}
	return true
}

// scorePartner scores one eligible candidate and derives its match reasons.
func (cfg AccountabilityConfig) scorePartner(requester, candidate MatchProfile) PartnershipCandidate {
	goalRatio, matchedGoals := GoalMatchRatio(requester.Goals, candidate.Goals)
	shared := SharedTags(requester.Communities, candidate.Communities)

	scores := map[Factor]float64{
		FactorCommunity:      JaccardSimilarity(requester.Communities, candidate.Communities),
		FactorGoal:           goalRatio,
		FactorActivityParity: ActivityParity(requester.LifetimeActivity, candidate.LifetimeActivity),
		FactorStreakParity:   StreakParity(requester.Streak, candidate.Streak, cfg.StreakParityRange),
	}

	var reasons []string
	if len(shared) > 0 {
		reasons = append(reasons, fmt.Sprintf("You're both in %s", shared[0]))
	}
	streakDiff := requester.Streak - candidate.Streak
	if streakDiff < 0 {
		streakDiff = -streakDiff
	}
	if streakDiff <= cfg.ReasonStreakDelta {
		reasons = append(reasons, fmt.Sprintf("Similar streaks (%d and %d days)", requester.Streak, candidate.Streak))
	}
	if len(matchedGoals) > 0 {
		reasons = append(reasons, fmt.Sprintf("Working toward %s", matchedGoals[0]))
	}
	if cfg.MaxReasons >= 0 && len(reasons) > cfg.MaxReasons {
		reasons = reasons[:cfg.MaxReasons]
	}

	return PartnershipCandidate{
		CompatibilityResult: CompatibilityResult{
			CandidateID:       candidate.ID,
			Score:             aggregate(cfg.Weights, scores),
			Factors:           scaleFactors(cfg.Weights, scores),
			SharedCommunities: nonNil(shared),
			MatchingGoals:     nonNil(matchedGoals),
		},
		Reasons: nonNil(reasons),
	}
}

// SelectPartner picks the single best accountability partner, or nil when nobody is eligible.
//
// an existing partner in scope is returned as is, without scoring, so repeated lookups
// never reassign partners. ties go to the candidate that came first in the pool.
func SelectPartner(cfg AccountabilityConfig, in AccountabilityInput) *PartnershipCandidate {
	if in.Requester.ID.IsZero() {
		return nil
	}

	if in.ExistingPartner != nil && !in.ExistingPartner.IsZero() {
		return &PartnershipCandidate{
			CompatibilityResult: CompatibilityResult{
				CandidateID:       *in.ExistingPartner,
				Factors:           map[Factor]int{},
				SharedCommunities: []string{},
				MatchingGoals:     []string{},
			},
			Reasons:  []string{},
			Existing: true,
		}
	}

	var best *PartnershipCandidate
	seen := make(map[UserID]bool, len(in.Candidates))

	for _, candidate := range in.Candidates {
		if candidate.ID.IsZero() || seen[candidate.ID] {
			continue
		}
		seen[candidate.ID] = true

		// self guard holds regardless of the configured rules
		if candidate.ID == in.Requester.ID || !cfg.eligible(in, candidate) {
			continue
		}

		scored := cfg.scorePartner(in.Requester, candidate)
		if best == nil || scored.Score > best.Score {
			best = &scored
		}
	}

	return best
}
