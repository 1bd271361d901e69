package domain

import (
	"reflect"
	"testing"
)

func TestGoalContribution(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"exact", "golang", "golang", 1.0},
		{"contains", "go", "golang", 0.8},
		{"contained", "web development", "web", 0.8},
		{"abbreviation", "ml", "machine learning", 0.8},
		{"abbreviation_reversed", "machine learning", "ml", 0.8},
		{"fuzzy_above_threshold", "javascript", "javascipt", 0.9 * 0.7},
		{"fuzzy_below_threshold", "python", "golang", 0},
		{"single_letter_contained", "d", "design", 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := goalContribution(tt.a, tt.b)
			if !approxEqual(got, tt.expected) {
				t.Errorf("goalContribution(%q, %q) = %f, expected %f", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestIsAbbreviation(t *testing.T) {
	tests := []struct {
		short, long string
		expected    bool
	}{
		{"ml", "machine learning", true},
		{"ux", "user experience", true},
		{"ai", "artificial-intelligence", true},
		{"m", "machine learning", false},
		{"ml", "machine", false},
		{"dl", "machine learning", false},
		{"m l", "machine learning", false},
	}

	for _, tt := range tests {
		if got := isAbbreviation(tt.short, tt.long); got != tt.expected {
			t.Errorf("isAbbreviation(%q, %q) = %v, expected %v", tt.short, tt.long, got, tt.expected)
		}
	}
}

func TestMatchGoals_EmptySides(t *testing.T) {
	tests := []struct {
		name      string
		user      []string
		candidate []string
	}{
		{"both_empty", nil, nil},
		{"user_empty", nil, []string{"go"}},
		{"candidate_empty", []string{"go"}, nil},
		{"blank_goals", []string{"  "}, []string{"go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchGoals(tt.user, tt.candidate)
			if got.Score != 0 {
				t.Errorf("expected 0, got %f", got.Score)
			}
			if len(got.Overlapping) != 0 {
				t.Errorf("expected no overlapping goals, got %v", got.Overlapping)
			}
		})
	}
}

func TestMatchGoals_ExactSaturation(t *testing.T) {
	got := MatchGoals(
		[]string{"Machine Learning", "Web Dev"},
		[]string{"design", "web dev", "machine learning"},
	)

	if got.Score != 1.0 {
		t.Errorf("expected 1.0, got %f", got.Score)
	}
	expected := []string{"web dev", "machine learning"}
	if !reflect.DeepEqual(got.Overlapping, expected) {
		t.Errorf("expected overlapping %v, got %v", expected, got.Overlapping)
	}
}

func TestMatchGoals_MeanOfBestContributions(t *testing.T) {
	// go -> golang contains (0.8), python has no counterpart (0)
	got := MatchGoals([]string{"go", "python"}, []string{"golang"})

	if !approxEqual(got.Score, 0.4) {
		t.Errorf("expected 0.4, got %f", got.Score)
	}
	if !reflect.DeepEqual(got.Overlapping, []string{"golang"}) {
		t.Errorf("expected [golang], got %v", got.Overlapping)
	}
}

func TestMatchGoals_FuzzyOverlapThreshold(t *testing.T) {
	// 0.9 similarity discounted to 0.63, still above the display threshold
	got := MatchGoals([]string{"javascript"}, []string{"JavaScipt"})

	if !approxEqual(got.Score, 0.63) {
		t.Errorf("expected 0.63, got %f", got.Score)
	}
	if !reflect.DeepEqual(got.Overlapping, []string{"JavaScipt"}) {
		t.Errorf("expected original casing preserved, got %v", got.Overlapping)
	}
}

func TestMatchGoals_DeduplicatesCandidateGoals(t *testing.T) {
	got := MatchGoals([]string{"go"}, []string{"Go", "go ", "GO"})

	if got.Score != 1.0 {
		t.Errorf("expected 1.0, got %f", got.Score)
	}
	if !reflect.DeepEqual(got.Overlapping, []string{"Go"}) {
		t.Errorf("expected [Go], got %v", got.Overlapping)
	}
}

func TestMatchGoals_AbbreviationCounts(t *testing.T) {
	got := MatchGoals([]string{"Machine Learning", "Web Dev"}, []string{"ML", "Design"})

	if !approxEqual(got.Score, 0.4) {
		t.Errorf("expected 0.4, got %f", got.Score)
	}
	if !reflect.DeepEqual(got.Overlapping, []string{"ML"}) {
		t.Errorf("expected [ML], got %v", got.Overlapping)
	}
}

func TestGoalMatchRatio(t *testing.T) {
	tests := []struct {
		name          string
		user          []string
		candidate     []string
		expected      float64
		expectedGoals []string
	}{
		{"empty_user", nil, []string{"go"}, 0, nil},
		{"empty_candidate", []string{"go"}, nil, 0, nil},
		{"all_exact", []string{"go", "rust"}, []string{"Rust", "Go"}, 1, []string{"Rust", "Go"}},
		{"divides_by_longer_list", []string{"go", "rust"}, []string{"golang", "design", "art"}, 1.0 / 3, []string{"golang"}},
		{"fuzzy_counts_once", []string{"javascript"}, []string{"javascipt"}, 1, []string{"javascipt"}},
		{"no_match", []string{"python"}, []string{"golang"}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, goals := GoalMatchRatio(tt.user, tt.candidate)
			if !approxEqual(got, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
			if !reflect.DeepEqual(goals, tt.expectedGoals) {
				t.Errorf("expected goals %v, got %v", tt.expectedGoals, goals)
			}
		})
	}
}

func TestMatchGoals_OverlapIgnoresCandidateOrder(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		expected   []string
	}{
		{"exact_first", []string{"ml", "ml ops"}, []string{"ml", "ml ops"}},
		{"exact_last", []string{"ml ops", "ml"}, []string{"ml ops", "ml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchGoals([]string{"ml"}, tt.candidates)

			if got.Score != 1.0 {
				t.Errorf("expected 1.0, got %f", got.Score)
			}
			if !reflect.DeepEqual(got.Overlapping, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got.Overlapping)
			}
		})
	}
}
